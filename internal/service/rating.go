package service

import (
	"context"
	"errors"
	"log/slog"

	"ridehail/internal/domain"
	"ridehail/internal/logging"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// RatingService records a rider's rating and folds it into the driver's
// running average.
type RatingService struct {
	tx            repository.Transactor
	notifications *NotificationService
	presence      driverPresence
	logger        *slog.Logger
}

// NewRatingService creates a new RatingService.
func NewRatingService(
	tx repository.Transactor,
	notifications *NotificationService,
	cacheStore redis.DriverCacheInterface,
	logger *slog.Logger,
) *RatingService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RatingService{
		tx:            tx,
		notifications: notifications,
		presence:      driverPresence{cache: cacheStore, logger: logger},
		logger:        logger,
	}
}

// RateRideRequest contains the parameters for rating a ride.
type RateRideRequest struct {
	RiderID string
	RideID  string
	Rating  int
}

// RateRide sets the ride's rating once and updates the assigned driver's
// aggregate in the same transaction.
func (s *RatingService) RateRide(ctx context.Context, req RateRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	var (
		ride   *domain.Ride
		driver *domain.Driver
		rating domain.DriverRating
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		var err error
		ride, err = st.Rides.GetByID(ctx, req.RideID)
		if err != nil {
			return err
		}
		if ride.RiderID != req.RiderID {
			return ErrNotRideOwner
		}
		if ride.Status != domain.RideStatusCompleted {
			return ErrRideNotCompleted
		}
		if ride.IsRated() {
			return ErrRideAlreadyRated
		}

		ride.Rating = req.Rating
		if err := st.Rides.Update(ctx, ride); err != nil {
			// A concurrent rating bumped the version first.
			if errors.Is(err, repository.ErrConflict) {
				return ErrRideAlreadyRated
			}
			return err
		}

		if ride.DriverID == "" {
			return nil
		}
		rating, err = st.Drivers.ApplyRating(ctx, ride.DriverID, req.Rating)
		if err != nil {
			return err
		}
		driver, err = st.Drivers.GetByID(ctx, ride.DriverID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if driver != nil {
		s.presence.invalidate(ctx, driver.AccountID)
	}

	s.logger.InfoContext(ctx, "ride rated", "ride_id", ride.ID, "rating", ride.Rating,
		"driver_id", ride.DriverID, "driver_average", rating.Average, "driver_count", rating.Count)
	if s.notifications != nil {
		_ = s.notifications.NotifyRideRated(ctx, ride)
	}
	return ride, nil
}
