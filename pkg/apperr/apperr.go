// Package apperr defines the failure taxonomy shared by the application
// services and the HTTP boundary. Services return *Error values; the boundary
// translates them into a status code and a structured body without ever
// inspecting message strings.
package apperr

import (
	"errors"
	"net/http"
)

// Type identifies a failure kind.
type Type string

const (
	TypeUnauthorized       Type = "Unauthorized"
	TypeForbidden          Type = "Forbidden"
	TypeNotFound           Type = "NotFound"
	TypeInvalidCredentials Type = "InvalidCredentials"
	TypeDuplicateEmail     Type = "DuplicateEmail"
	TypeSamePassword       Type = "SamePassword"
	TypeInvalidRole        Type = "InvalidRole"
	TypeLastAdmin          Type = "LastAdminProtected"
	TypeValidation         Type = "ValidationError"
	TypeRateLimited        Type = "TooManyRequests"
	TypeInternal           Type = "InternalServerError"
)

type Error struct {
	Type    Type
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Type) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Type) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status maps the failure kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Type {
	case TypeUnauthorized, TypeInvalidCredentials:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeDuplicateEmail, TypeSamePassword, TypeInvalidRole, TypeLastAdmin, TypeValidation:
		return http.StatusBadRequest
	case TypeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func New(t Type, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Wrap keeps the underlying cause available to errors.Is/As while presenting
// the typed failure outward.
func Wrap(t Type, msg string, cause error) *Error {
	return &Error{Type: t, Message: msg, cause: cause}
}

// WithDetails attaches structured details (e.g. per-field validation messages).
func WithDetails(t Type, msg string, details any) *Error {
	return &Error{Type: t, Message: msg, Details: details}
}

// From extracts the typed failure from err, or classifies it as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Type: TypeInternal, Message: "internal server error", cause: err}
}

// IsType reports whether err carries the given failure kind.
func IsType(err error, t Type) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}
