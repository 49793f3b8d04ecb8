package service

import (
	"context"
	"log/slog"
	"strings"

	"ridehail/internal/domain"
	"ridehail/internal/geo"
	"ridehail/internal/logging"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// DriverService handles driver profile, availability and location.
type DriverService struct {
	driverRepo repository.DriverRepository
	rideRepo   repository.RideRepository
	presence   driverPresence
	logger     *slog.Logger
}

// NewDriverService creates a new DriverService. locationStore and cacheStore
// may be nil.
func NewDriverService(
	driverRepo repository.DriverRepository,
	rideRepo repository.RideRepository,
	locationStore redis.LocationStoreInterface,
	cacheStore redis.DriverCacheInterface,
	logger *slog.Logger,
) *DriverService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &DriverService{
		driverRepo: driverRepo,
		rideRepo:   rideRepo,
		presence:   driverPresence{locations: locationStore, cache: cacheStore, logger: logger},
		logger:     logger,
	}
}

// GetProfile returns the caller's driver profile, from cache when fresh.
func (s *DriverService) GetProfile(ctx context.Context, accountID string) (*domain.Driver, error) {
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}
	if cached := s.presence.cached(ctx, accountID); cached != nil {
		return cached, nil
	}

	driver, err := s.driverRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	s.presence.store(ctx, driver)
	return driver, nil
}

// UpdateProfileRequest carries the fields to change. Nil fields are kept.
type UpdateProfileRequest struct {
	AccountID     string
	Make          *string
	Model         *string
	Year          *int
	LicensePlate  *string
	Color         *string
	Categories    []domain.Category
	LicenseNumber *string
}

// UpdateProfile changes vehicle and license details.
func (s *DriverService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*domain.Driver, error) {
	for _, c := range req.Categories {
		if !c.Valid() {
			return nil, ErrInvalidCategory
		}
	}
	if req.LicenseNumber != nil && strings.TrimSpace(*req.LicenseNumber) == "" {
		return nil, ErrMissingVehicle
	}

	driver, err := s.driverRepo.GetByAccountID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	v := &driver.Vehicle
	setString(&v.Make, req.Make)
	setString(&v.Model, req.Model)
	setString(&v.LicensePlate, req.LicensePlate)
	setString(&v.Color, req.Color)
	if req.Year != nil {
		v.Year = *req.Year
	}
	if req.Categories != nil {
		v.Categories = dedupeCategories(req.Categories)
	}
	v.Normalize()
	if req.LicenseNumber != nil {
		driver.LicenseNumber = strings.TrimSpace(*req.LicenseNumber)
	}

	if err := s.driverRepo.UpdateProfile(ctx, driver); err != nil {
		return nil, err
	}

	s.presence.invalidate(ctx, driver.AccountID)
	s.logger.InfoContext(ctx, "driver profile updated", "driver_id", driver.ID)
	return driver, nil
}

// SetAvailabilityRequest contains the parameters for toggling availability.
type SetAvailabilityRequest struct {
	AccountID string
	Available bool
}

// SetAvailability takes the driver online or offline. A driver holding an
// active ride cannot go online; completing the ride does that.
func (s *DriverService) SetAvailability(ctx context.Context, req SetAvailabilityRequest) (*domain.Driver, error) {
	driver, err := s.driverRepo.GetByAccountID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if req.Available {
		busy, err := s.rideRepo.HasActiveByDriver(ctx, driver.ID)
		if err != nil {
			return nil, err
		}
		if busy {
			return nil, ErrDriverHasActiveRide
		}
	}

	if err := s.driverRepo.SetAvailability(ctx, driver.ID, req.Available); err != nil {
		return nil, err
	}
	driver.Available = req.Available

	s.presence.sync(ctx, driver)
	s.logger.InfoContext(ctx, "driver availability changed", "driver_id", driver.ID, "available", driver.Available)
	return driver, nil
}

// UpdateDriverLocationRequest contains the driver's current position.
type UpdateDriverLocationRequest struct {
	AccountID string
	Location  domain.Location
}

// UpdateLocation stores the driver's position and refreshes the geo mirror.
func (s *DriverService) UpdateLocation(ctx context.Context, req UpdateDriverLocationRequest) (*domain.Driver, error) {
	if !geo.IsValidCoordinate(req.Location.Point()) {
		return nil, ErrInvalidLocation
	}

	driver, err := s.driverRepo.GetByAccountID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	loc := domain.Location{
		Address: strings.TrimSpace(req.Location.Address),
		Lat:     req.Location.Lat,
		Lng:     req.Location.Lng,
	}
	if err := s.driverRepo.UpdateLocation(ctx, driver.ID, loc); err != nil {
		return nil, err
	}
	driver.Location = &loc

	s.presence.sync(ctx, driver)
	return driver, nil
}

// ListRides returns the rides assigned to the driver, newest first, without
// pickup codes.
func (s *DriverService) ListRides(ctx context.Context, accountID string) ([]*domain.Ride, error) {
	driver, err := s.driverRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	rides, err := s.rideRepo.ListByDriver(ctx, driver.ID)
	if err != nil {
		return nil, err
	}
	views := make([]*domain.Ride, len(rides))
	for i, r := range rides {
		views[i] = r.DriverView()
	}
	return views, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func dedupeCategories(in []domain.Category) []domain.Category {
	seen := make(map[domain.Category]bool, len(in))
	out := make([]domain.Category, 0, len(in))
	for _, c := range in {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
