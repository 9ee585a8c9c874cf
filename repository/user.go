package repository

import (
	"context"

	"github.com/smarttask/backend/domain"
)

type UserRepository interface {
	// Create inserts a new user and fails with domain.ErrDuplicateEmail when
	// the email is already taken. Existing rows are never overwritten.
	Create(ctx context.Context, user *domain.User) error

	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByCredentials matches email and password digest exactly. Unknown
	// email and wrong password are indistinguishable: both return
	// domain.ErrInvalidCredentials.
	GetByCredentials(ctx context.Context, email, digest string) (*domain.User, error)
}
