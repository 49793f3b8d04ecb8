package service

import (
	"context"
	"testing"
	"time"

	"ridehail/internal/domain"
)

func TestSweeper_SkipsWhenLockHeld(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addRequestedRide("ride-1", "rider-1", base, domain.CategoryEconomy, 0)
	env.clock.Advance(DefaultRequestTimeout)

	locks := newMockLockStore()
	locks.held[sweepLockName] = "other-instance"
	sweeper := NewSweeper(env.lifecycle, locks, time.Minute, nil)

	if sweeper.sweepOnce(context.Background()) {
		t.Fatal("expected the sweep to be skipped")
	}
	if r := env.store.GetRide("ride-1"); r.Status != domain.RideStatusRequested {
		t.Errorf("expected ride untouched, got %s", r.Status)
	}
	if locks.releaseCount != 0 {
		t.Errorf("must not release a lock it does not hold, released %d", locks.releaseCount)
	}
}

func TestSweeper_ExpiresAndReleasesLock(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addRequestedRide("ride-1", "rider-1", base, domain.CategoryEconomy, 0)
	env.clock.Advance(DefaultRequestTimeout)

	locks := newMockLockStore()
	sweeper := NewSweeper(env.lifecycle, locks, time.Minute, nil)

	if !sweeper.sweepOnce(context.Background()) {
		t.Fatal("expected the sweep to run")
	}
	if r := env.store.GetRide("ride-1"); r.Status != domain.RideStatusCancelled || r.CancelReason != ExpiryReason {
		t.Errorf("expected cancelled by expiry, got %s (%q)", r.Status, r.CancelReason)
	}
	if len(locks.held) != 0 || locks.releaseCount != 1 {
		t.Errorf("expected the lock released, held=%v released=%d", locks.held, locks.releaseCount)
	}
}

func TestSweeper_WithoutLocks(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addRequestedRide("ride-1", "rider-1", base, domain.CategoryEconomy, 0)
	env.clock.Advance(DefaultRequestTimeout + time.Second)

	sweeper := NewSweeper(env.lifecycle, nil, 0, nil)
	if sweeper.interval != 30*time.Second {
		t.Errorf("expected default interval, got %v", sweeper.interval)
	}
	if !sweeper.sweepOnce(context.Background()) {
		t.Fatal("expected the sweep to run")
	}
	if r := env.store.GetRide("ride-1"); r.Status != domain.RideStatusCancelled || r.CancelReason != ExpiryReason {
		t.Errorf("expected cancelled by expiry, got %s (%q)", r.Status, r.CancelReason)
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sweeper := NewSweeper(env.lifecycle, nil, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
