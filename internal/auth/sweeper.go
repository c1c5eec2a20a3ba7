package auth

import (
	"context"
	"time"

	"hosi.com/identity/internal/obs"
)

// Sweeper periodically deletes denylist entries that can no longer match an
// acceptable token.
type Sweeper struct {
	store    Purger
	now      Clock
	interval time.Duration
	grace    time.Duration
}

// NewSweeper constructs a Sweeper. grace is how long past its expiry an entry
// must survive; see Service.RevocationGrace.
func NewSweeper(store Purger, interval, grace time.Duration, now Clock) *Sweeper {
	if now == nil {
		now = SystemClock
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{store: store, now: now, interval: interval, grace: grace}
}

// SweepOnce purges entries whose expiry is older than now minus grace.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpired(ctx, s.now().Add(-s.grace))
	if err != nil {
		return 0, storeError("purge revocations", err)
	}
	obs.ObservePurged(n)
	return n, nil
}

// Run sweeps on every tick until ctx is cancelled. Failures are logged and
// retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				obs.Error("revocation sweep failed", map[string]any{"err": err})
				continue
			}
			if n > 0 {
				obs.Info("revocation sweep", map[string]any{"purged": n})
			}
		}
	}
}
