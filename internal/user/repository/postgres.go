package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"user-auth-service/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, name, role, hash_password, is_active, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create inserts the user and returns the id assigned by the database.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, name, role, hash_password, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		u.Email, u.Name, string(u.Role), u.HashPassword, u.IsActive, u.CreatedAt, u.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Activate sets is_active true for the user. Updating a missing row is a no-op.
func (r *PostgresRepository) Activate(ctx context.Context, id int64, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = TRUE, updated_at = $2 WHERE id = $1`,
		id, updatedAt,
	)
	return err
}

// UpdatePassword replaces the stored password hash. Updating a missing row is a no-op.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, hashPassword string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET hash_password = $2, updated_at = $3 WHERE id = $1`,
		id, hashPassword, updatedAt,
	)
	return err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.HashPassword, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
