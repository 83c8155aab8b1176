package repository

import (
	"context"
	"time"

	"user-auth-service/internal/user/domain"
)

// Repository defines persistence for users. Writes take updatedAt from the
// caller so the service clock is the single source of time.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create inserts the user and returns the assigned id.
	Create(ctx context.Context, u *domain.User) (int64, error)
	// Activate flips the user's activation flag after successful OTP verification.
	Activate(ctx context.Context, id int64, updatedAt time.Time) error
	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id int64, hashPassword string, updatedAt time.Time) error
}
