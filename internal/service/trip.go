package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/logging"
	"ridehail/internal/metrics"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// TripService moves an accepted ride through pickup and drop-off.
type TripService struct {
	tx            repository.Transactor
	driverRepo    repository.DriverRepository
	notifications *NotificationService
	presence      driverPresence
	logger        *slog.Logger
	now           func() time.Time
}

// NewTripService creates a new TripService.
func NewTripService(
	tx repository.Transactor,
	driverRepo repository.DriverRepository,
	notifications *NotificationService,
	locationStore redis.LocationStoreInterface,
	cacheStore redis.DriverCacheInterface,
	logger *slog.Logger,
) *TripService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &TripService{
		tx:            tx,
		driverRepo:    driverRepo,
		notifications: notifications,
		presence:      driverPresence{locations: locationStore, cache: cacheStore, logger: logger},
		logger:        logger,
		now:           time.Now,
	}
}

// AdvanceStatusRequest contains the parameters for a driver status change.
type AdvanceStatusRequest struct {
	AccountID string
	RideID    string
	Status    domain.RideStatus // in_progress or completed
}

// AdvanceStatus starts or completes the driver's ride. Starting requires a
// verified pickup whenever a code was issued. Completing makes the driver
// available again and credits the fare, in the same transaction as the ride
// write.
func (s *TripService) AdvanceStatus(ctx context.Context, req AdvanceStatusRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.Status != domain.RideStatusInProgress && req.Status != domain.RideStatusCompleted {
		return nil, ErrInvalidStatus
	}

	driver, err := s.driverRepo.GetByAccountID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	var ride *domain.Ride
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		var err error
		ride, err = st.Rides.GetByID(ctx, req.RideID)
		if err != nil {
			return err
		}
		if ride.DriverID != driver.ID {
			return ErrDriverNotAssignedToRide
		}
		if !domain.CanTransition(ride.Status, req.Status) {
			return &domain.TransitionError{From: ride.Status, To: req.Status}
		}
		if req.Status == domain.RideStatusInProgress && ride.PickupCodeIssued() && !ride.PickupVerified() {
			return ErrPickupNotVerified
		}

		if err := ride.TransitionTo(req.Status); err != nil {
			return err
		}
		now := s.now()
		if req.Status == domain.RideStatusInProgress {
			ride.StartedAt = now
		} else {
			ride.EndedAt = now
		}

		if err := st.Rides.Update(ctx, ride); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrConcurrentUpdate
			}
			return err
		}

		if req.Status == domain.RideStatusCompleted {
			return st.Drivers.RecordCompletion(ctx, driver.ID, ride.Fare.Total)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ride status advanced", "ride_id", ride.ID, "driver_id", driver.ID, "status", ride.Status)

	if ride.Status == domain.RideStatusCompleted {
		metrics.RidesCompleted.Inc()
		metrics.FareTotal.WithLabelValues(string(ride.Category)).Observe(float64(ride.Fare.Total))
		driver.Available = true
		s.presence.sync(ctx, driver)
		if s.notifications != nil {
			_ = s.notifications.NotifyTripCompleted(ctx, ride)
		}
	} else if s.notifications != nil {
		_ = s.notifications.NotifyTripStarted(ctx, ride)
	}

	return ride.DriverView(), nil
}
