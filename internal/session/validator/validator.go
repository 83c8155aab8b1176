// Package validator answers "is this session still valid" on the per-request
// hot path. Two implementations exist: a direct sessions-table lookup, and a
// Redis whitelist with the table as fallback and source of truth.
package validator

import (
	"context"
	"errors"
	"time"

	"user-auth-service/internal/session/domain"
)

// ErrSessionRevoked is returned when no live session exists for the jti. The
// token may still be cryptographically valid; the session row is authoritative.
var ErrSessionRevoked = errors.New("session revoked or expired")

// Validator confirms that the session bound to a token's jti is still live.
type Validator interface {
	Validate(ctx context.Context, jti string) error
}

// SessionGetter is the slice of the session repository the validators need.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
}

// StoreValidator checks session liveness directly against the session store.
type StoreValidator struct {
	sessions SessionGetter
}

// NewStoreValidator returns a Validator backed by the authoritative session store.
func NewStoreValidator(sessions SessionGetter) *StoreValidator {
	return &StoreValidator{sessions: sessions}
}

// Validate returns nil when a session row exists for jti; ErrSessionRevoked otherwise.
func (v *StoreValidator) Validate(ctx context.Context, jti string) error {
	s, err := v.sessions.GetByID(ctx, jti)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSessionRevoked
	}
	return nil
}

// CacheValidator checks the whitelist cache first and falls back to the
// session store on a miss, re-warming the cache when the row turns out to be
// live. Cache errors degrade to the store path rather than failing the request.
type CacheValidator struct {
	cache    Whitelist
	sessions SessionGetter
	nowF     func() time.Time
}

// NewCacheValidator returns a Validator that consults the whitelist cache
// before the session store.
func NewCacheValidator(cache Whitelist, sessions SessionGetter) *CacheValidator {
	return &CacheValidator{
		cache:    cache,
		sessions: sessions,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Validate returns nil when the jti is whitelisted or a live session row
// exists; ErrSessionRevoked otherwise.
func (v *CacheValidator) Validate(ctx context.Context, jti string) error {
	ok, err := v.cache.Has(ctx, AccessKey(jti))
	if err == nil && ok {
		return nil
	}

	s, err := v.sessions.GetByID(ctx, jti)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSessionRevoked
	}

	if ttl := s.AccessExpiresAt.Sub(v.nowF()); ttl > 0 {
		// Best-effort re-warm; the store already answered.
		_ = v.cache.Put(ctx, AccessKey(jti), ttl)
	}
	return nil
}
