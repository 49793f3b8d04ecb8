package service

import (
	"context"
	"log/slog"
	"time"

	"ridehail/internal/logging"
	"ridehail/internal/redis"
)

const sweepLockName = "ride-expiry-sweep"

// Sweeper periodically expires stale requests so riders learn about expiry
// without waiting for the next read. Correctness never depends on it. When a
// lock store is set, only one instance sweeps at a time.
type Sweeper struct {
	lifecycle *LifecycleService
	locks     redis.LockStoreInterface
	interval  time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a new Sweeper. locks may be nil.
func NewSweeper(lifecycle *LifecycleService, locks redis.LockStoreInterface, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Sweeper{lifecycle: lifecycle, locks: locks, interval: interval, logger: logger}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

// sweepOnce runs one sweep and reports whether it ran.
func (s *Sweeper) sweepOnce(ctx context.Context) bool {
	if s.locks != nil {
		token, ok, err := s.locks.Acquire(ctx, sweepLockName, s.interval)
		if err != nil {
			s.logger.WarnContext(ctx, "sweep lock failed", "error", err)
			return false
		}
		if !ok {
			return false
		}
		defer func() {
			if err := s.locks.Release(ctx, sweepLockName, token); err != nil {
				s.logger.WarnContext(ctx, "sweep lock release failed", "error", err)
			}
		}()
	}

	if _, err := s.lifecycle.ExpireStaleRequests(ctx); err != nil {
		s.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
	}
	return true
}
