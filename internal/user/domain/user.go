package domain

import (
	"errors"
	"time"
)

// User is the core user entity. Exactly one row exists per email.
// IsActive stays false until OTP verification succeeds; inactive users cannot log in.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         Role
	HashPassword string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Name == "" {
		return errors.New("name is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
