package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"user-auth-service/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, ip, device_name, browser, os, access_expires_at, refresh_expires_at, created_at, updated_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetByIDAndUser returns the session only when it is owned by userID, or nil.
func (r *PostgresRepository) GetByIDAndUser(ctx context.Context, id string, userID int64) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	return scanSession(row)
}

// ListByUser returns all sessions owned by userID, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.IP, &s.DeviceName, &s.Browser, &s.OS,
			&s.AccessExpiresAt, &s.RefreshExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Create persists the session, expiries included, as a single insert. The
// session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, ip, device_name, browser, os, access_expires_at, refresh_expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, s.IP, s.DeviceName, s.Browser, s.OS,
		s.AccessExpiresAt, s.RefreshExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

// UpdateExpiries extends the session's token expiries after a refresh.
// Updating a missing row is a no-op.
func (r *PostgresRepository) UpdateExpiries(ctx context.Context, id string, accessExpiresAt, refreshExpiresAt, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET access_expires_at = $2, refresh_expires_at = $3, updated_at = $4 WHERE id = $1`,
		id, accessExpiresAt, refreshExpiresAt, updatedAt,
	)
	return err
}

// Delete removes the session row. Deleting a missing row is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteByUser removes every session owned by userID.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes rows whose refresh expiry has passed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.IP, &s.DeviceName, &s.Browser, &s.OS,
		&s.AccessExpiresAt, &s.RefreshExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
