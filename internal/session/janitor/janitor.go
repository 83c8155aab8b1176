// Package janitor sweeps expired session rows on a fixed interval. It is the
// only mechanism that reclaims sessions whose owners never logged out.
package janitor

import (
	"context"
	"log"
	"time"
)

// Sweeper is the slice of the session repository the janitor needs.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically deletes sessions whose refresh expiry has passed.
// Sweeps are idempotent and safe to run concurrently with login, refresh, and
// logout: deleting an already-deleted row is a no-op at the store level.
type Janitor struct {
	sessions Sweeper
	interval time.Duration
	nowF     func() time.Time
}

// New returns a Janitor sweeping at the given interval (1m if non-positive).
func New(sessions Sweeper, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		sessions: sessions,
		interval: interval,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps until ctx is cancelled. Sweep errors are logged and the loop
// continues; the next tick retries.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	n, err := j.sessions.DeleteExpired(ctx, j.nowF())
	if err != nil {
		log.Printf("janitor: sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("janitor: deleted %d expired sessions", n)
	}
}
