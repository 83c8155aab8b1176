package repository

import (
	"context"
	"time"

	"user-auth-service/internal/session/domain"
)

// Repository defines persistence for sessions. Lookups return (nil, nil) for
// missing rows and deletes of already-deleted rows are no-ops, so request
// paths racing the janitor resolve to "not found" rather than an error.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// GetByIDAndUser returns the session only if it belongs to userID,
	// preventing cross-user session deletion on device logout.
	GetByIDAndUser(ctx context.Context, id string, userID int64) (*domain.Session, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// UpdateExpiries extends the row's token expiries after a refresh.
	// updatedAt comes from the caller's clock.
	UpdateExpiries(ctx context.Context, id string, accessExpiresAt, refreshExpiresAt, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	// DeleteByUser removes every session owned by userID and reports how many rows went.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	// DeleteExpired removes rows whose refresh expiry has passed; used by the janitor.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
