package repository

import (
	"context"
	"database/sql"
	"errors"

	"user-auth-service/internal/otp/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository returns an OTP repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByCodeAndUser returns the OTP row for (code, userID), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByCodeAndUser(ctx context.Context, code string, userID int64) (*domain.OtpCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, code, user_id, expires_at, created_at FROM otp_codes WHERE code = $1 AND user_id = $2`,
		code, userID)
	var c domain.OtpCode
	err := row.Scan(&c.ID, &c.Code, &c.UserID, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Replace deletes any prior code for the user and inserts the new one in one
// transaction, so two concurrent requests leave exactly one live code.
func (r *PostgresRepository) Replace(ctx context.Context, c *domain.OtpCode) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM otp_codes WHERE user_id = $1`, c.UserID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO otp_codes (code, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		c.Code, c.UserID, c.ExpiresAt, c.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the code row. Deleting a missing row is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE id = $1`, id)
	return err
}
