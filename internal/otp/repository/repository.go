package repository

import (
	"context"

	"user-auth-service/internal/otp/domain"
)

// Repository defines persistence for OTP codes.
type Repository interface {
	// GetByCodeAndUser returns the code row matching both values, or nil.
	// Keying on the pair rejects a correct code submitted for the wrong user.
	GetByCodeAndUser(ctx context.Context, code string, userID int64) (*domain.OtpCode, error)
	// Replace deletes any existing code for the user and inserts the new one
	// in a single transaction, keeping "one live code per user" under
	// concurrent requests.
	Replace(ctx context.Context, c *domain.OtpCode) error
	// Delete consumes a verified code. Deleting a missing row is a no-op.
	Delete(ctx context.Context, id int64) error
}
