package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User represents an archive account
type User struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsConfirmed reports whether the user verified their email address
func (u *User) IsConfirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil
}

// UserCreate represents user registration data
type UserCreate struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,max=72"`
	EmailRedirectTo string `json:"email_redirect_to" validate:"omitempty,url"`
}

// UserLogin represents login credentials
type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ConfirmEmail(ctx context.Context, id uuid.UUID, at time.Time) error
}
