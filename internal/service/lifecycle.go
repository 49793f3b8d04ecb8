package service

import (
	"context"
	"log/slog"
	"time"

	"ridehail/internal/logging"
	"ridehail/internal/metrics"
	"ridehail/internal/repository"
)

// DefaultRequestTimeout is how long a ride request waits for a driver.
const DefaultRequestTimeout = 5 * time.Minute

// ExpiryReason is recorded on rides cancelled by the expiry sweep.
const ExpiryReason = "no driver accepted within the window"

// LifecycleService expires stale ride requests. Expiry is lazy: every path
// that lists or claims pending rides sweeps first, so no scheduler is needed
// for correctness.
type LifecycleService struct {
	rideRepo      repository.RideRepository
	notifications *NotificationService
	logger        *slog.Logger
	timeout       time.Duration
	now           func() time.Time
}

// NewLifecycleService creates a new LifecycleService. A non-positive timeout
// uses DefaultRequestTimeout.
func NewLifecycleService(
	rideRepo repository.RideRepository,
	notifications *NotificationService,
	logger *slog.Logger,
	timeout time.Duration,
) *LifecycleService {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &LifecycleService{
		rideRepo:      rideRepo,
		notifications: notifications,
		logger:        logger,
		timeout:       timeout,
		now:           time.Now,
	}
}

// ExpiryDeadline returns the deadline of a request made at from.
func (s *LifecycleService) ExpiryDeadline(from time.Time) time.Time {
	return from.Add(s.timeout)
}

// ExpireStaleRequests cancels every requested, unassigned ride whose deadline
// has passed. Running it twice in a row changes nothing the second time.
func (s *LifecycleService) ExpireStaleRequests(ctx context.Context) (int64, error) {
	n, err := s.rideRepo.ExpireRequested(ctx, s.now(), ExpiryReason)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		metrics.RidesExpired.Add(float64(n))
		s.logger.InfoContext(ctx, "expired stale ride requests", "count", n)
		if s.notifications != nil {
			_ = s.notifications.NotifyRidesExpired(ctx, n)
		}
	}
	return n, nil
}
