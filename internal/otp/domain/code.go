package domain

import "time"

// OtpCode is a short-lived activation code for one user. At most one live
// (non-deleted, unexpired) code exists per user: issuing a new code deletes
// the previous one, and successful verification consumes the row.
type OtpCode struct {
	ID        int64
	Code      string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
