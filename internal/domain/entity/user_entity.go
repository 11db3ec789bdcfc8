package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// PasswordHash holds the bcrypt digest of the current password and must never
// leave the service in any outward-facing representation.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
