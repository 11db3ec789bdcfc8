package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	t.Parallel()
	cases := map[Type]int{
		TypeUnauthorized:       http.StatusUnauthorized,
		TypeInvalidCredentials: http.StatusUnauthorized,
		TypeForbidden:          http.StatusForbidden,
		TypeNotFound:           http.StatusNotFound,
		TypeDuplicateEmail:     http.StatusBadRequest,
		TypeSamePassword:       http.StatusBadRequest,
		TypeInvalidRole:        http.StatusBadRequest,
		TypeLastAdmin:          http.StatusBadRequest,
		TypeValidation:         http.StatusBadRequest,
		TypeRateLimited:        http.StatusTooManyRequests,
		TypeInternal:           http.StatusInternalServerError,
	}
	for typ, want := range cases {
		assert.Equal(t, want, New(typ, "m").Status(), string(typ))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	err := Wrap(TypeInternal, "storage failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsType(err, TypeInternal))
}

func TestFrom(t *testing.T) {
	t.Parallel()
	typed := New(TypeNotFound, "user not found")
	assert.Same(t, typed, From(typed))

	plain := errors.New("boom")
	got := From(plain)
	assert.Equal(t, TypeInternal, got.Type)
	assert.ErrorIs(t, got, plain)
}
