package domain

import "time"

// Session is one login instance for a user on one device; it is the
// authoritative revocation unit. The row's id doubles as the jti claim of the
// token pair minted for it. A session exists from login (or refresh) until it
// is deleted by a logout variant or swept by the janitor once
// RefreshExpiresAt has passed. Ids are never reused.
type Session struct {
	ID               string // uuid, also the token jti
	UserID           int64
	IP               string
	DeviceName       string
	Browser          string
	OS               string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
