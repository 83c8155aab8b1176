package janitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSweeper struct {
	mu     sync.Mutex
	calls  int
	err    error
	lastAt time.Time
}

func (s *fakeSweeper) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastAt = now
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}

func (s *fakeSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	sweeper := &fakeSweeper{}
	j := New(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sweeper.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("janitor did not sweep twice within 2s")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ContinuesAfterSweepError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	j := New(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go j.Run(ctx)

	deadline := time.After(2 * time.Second)
	for sweeper.count() < 3 {
		select {
		case <-deadline:
			t.Fatal("janitor stopped retrying after errors")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	j := New(&fakeSweeper{}, 0)
	if j.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", j.interval)
	}
}
