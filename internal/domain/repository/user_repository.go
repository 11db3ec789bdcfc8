package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
)

// Store failures the service layer distinguishes between.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already taken")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// Update persists name and email; role and password have dedicated paths.
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id string, role entity.Role) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*entity.User, error)
	CountByRole(ctx context.Context, role entity.Role) (int64, error)
}
