package storage

import (
	"context"
	"errors"

	usermodel "github.com/Varun5711/tinyauth/internal/models/user"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
)

// UserStore persists user records. Lookups return (nil, nil) when nothing
// matches. Create and UpdatePassword take the plaintext password and hash it
// before it is written.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*usermodel.User, error)
	FindByID(ctx context.Context, id string) (*usermodel.User, error)
	Create(ctx context.Context, name, email, password string) (*usermodel.User, error)
	UpdateProfile(ctx context.Context, id, name, email string) (*usermodel.User, error)
	UpdatePassword(ctx context.Context, id, password string) error
	Delete(ctx context.Context, id string) error
}
