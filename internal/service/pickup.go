package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/logging"
	"ridehail/internal/repository"
)

var pickupCodePattern = regexp.MustCompile(`^\d{4}$`)

// PickupService confirms the rider is physically present before a trip
// starts. The code is only ever shown to the rider.
type PickupService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewPickupService creates a new PickupService.
func NewPickupService(rideRepo repository.RideRepository, driverRepo repository.DriverRepository, logger *slog.Logger) *PickupService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &PickupService{rideRepo: rideRepo, driverRepo: driverRepo, logger: logger, now: time.Now}
}

// VerifyPickupRequest contains the parameters for verifying a pickup code.
type VerifyPickupRequest struct {
	AccountID string
	RideID    string
	Code      string
}

// VerifyPickupCode checks the code the rider showed the driver. Verifying an
// already verified ride succeeds without looking at the code. On a match the
// stored code is cleared.
func (s *PickupService) VerifyPickupCode(ctx context.Context, req VerifyPickupRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if !pickupCodePattern.MatchString(req.Code) {
		return nil, ErrInvalidPickupCodeFormat
	}

	driver, err := s.driverRepo.GetByAccountID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driver.ID {
		return nil, ErrDriverNotAssignedToRide
	}
	if ride.Status != domain.RideStatusAccepted {
		return nil, ErrRideNotAccepted
	}
	if ride.PickupVerified() {
		return ride.DriverView(), nil
	}

	if ride.PickupCode == "" || subtle.ConstantTimeCompare([]byte(ride.PickupCode), []byte(req.Code)) != 1 {
		s.logger.InfoContext(ctx, "pickup code mismatch", "ride_id", ride.ID, "driver_id", driver.ID)
		return nil, ErrPickupCodeMismatch
	}

	ride.PickupVerifiedAt = s.now()
	ride.PickupCode = ""
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConcurrentUpdate
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "pickup verified", "ride_id", ride.ID, "driver_id", driver.ID)
	return ride.DriverView(), nil
}
