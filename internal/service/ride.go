package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/domain"
	"ridehail/internal/geo"
	"ridehail/internal/logging"
	"ridehail/internal/metrics"
	"ridehail/internal/pricing"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// samePointTolerance is the coordinate delta below which pickup and dropoff
// count as the same place.
const samePointTolerance = 0.0001

// DefaultCancelReason is recorded when a rider cancels without a reason.
const DefaultCancelReason = "cancelled by rider"

// RideService handles the rider side of a ride.
type RideService struct {
	tx            repository.Transactor
	rideRepo      repository.RideRepository
	driverRepo    repository.DriverRepository
	engine        *pricing.Engine
	lifecycle     *LifecycleService
	dispatch      *DispatchService
	notifications *NotificationService
	locationStore redis.LocationStoreInterface
	presence      driverPresence
	logger        *slog.Logger
	now           func() time.Time
}

// NewRideService creates a new RideService. locationStore and cacheStore may
// be nil.
func NewRideService(
	tx repository.Transactor,
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	engine *pricing.Engine,
	lifecycle *LifecycleService,
	dispatch *DispatchService,
	notifications *NotificationService,
	locationStore redis.LocationStoreInterface,
	cacheStore redis.DriverCacheInterface,
	logger *slog.Logger,
) *RideService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RideService{
		tx:            tx,
		rideRepo:      rideRepo,
		driverRepo:    driverRepo,
		engine:        engine,
		lifecycle:     lifecycle,
		dispatch:      dispatch,
		notifications: notifications,
		locationStore: locationStore,
		presence:      driverPresence{locations: locationStore, cache: cacheStore, logger: logger},
		logger:        logger,
		now:           time.Now,
	}
}

// QuoteRequest contains the trip estimate to price.
type QuoteRequest struct {
	DistanceKm  float64
	DurationMin float64
	AddOn       float64
	Pickup      *geo.Point // optional, enables the nearby driver count
}

// QuoteResult holds one fare per category, cheapest first.
type QuoteResult struct {
	Quotes        []pricing.Breakdown
	NearbyDrivers *int // nil when unknown
}

// Quotes prices the trip in every category.
func (s *RideService) Quotes(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	if !positive(req.DistanceKm) || !positive(req.DurationMin) {
		return nil, ErrMissingTripEstimate
	}
	if !withinEstimateBounds(req.DistanceKm, req.DurationMin) {
		return nil, ErrTripEstimateOutOfRange
	}
	if !validAddOn(req.AddOn) {
		return nil, ErrInvalidAddOn
	}

	result := &QuoteResult{Quotes: s.engine.Quotes(req.DistanceKm, req.DurationMin, req.AddOn)}

	if req.Pickup != nil && s.locationStore != nil && geo.IsValidCoordinate(*req.Pickup) {
		radius := s.dispatch.DispatchRadiusKm(int64(math.Round(req.AddOn)))
		nearby, err := s.locationStore.FindNearbyDrivers(ctx, req.Pickup.Lat, req.Pickup.Lng, radius)
		if err != nil {
			s.logger.WarnContext(ctx, "nearby driver lookup failed", "error", err)
		} else {
			n := len(nearby)
			result.NearbyDrivers = &n
		}
	}

	return result, nil
}

// BookRideRequest contains the parameters for booking a ride.
type BookRideRequest struct {
	RiderID       string
	Pickup        domain.Location
	Dropoff       domain.Location
	Category      domain.Category      // Optional: defaults to economy
	PaymentMethod domain.PaymentMethod // Optional: defaults to cash
	DistanceKm    float64              // Optional: defaults to the great-circle distance
	DurationMin   float64              // Optional: the pricing engine's fallback applies
	AddOn         float64
}

// Book creates a requested ride open to drivers until its expiry deadline.
func (s *RideService) Book(ctx context.Context, req BookRideRequest) (*domain.Ride, error) {
	if err := s.validateBookRequest(&req); err != nil {
		return nil, err
	}

	if _, err := s.lifecycle.ExpireStaleRequests(ctx); err != nil {
		return nil, err
	}

	active, err := s.rideRepo.HasActiveByRider(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrRiderHasActiveRide
	}

	distance := req.DistanceKm
	if !positive(distance) {
		distance, _ = geo.DistanceKm(req.Pickup.Point(), req.Dropoff.Point())
	}

	now := s.now()
	ride := &domain.Ride{
		ID:               uuid.New().String(),
		RiderID:          req.RiderID,
		Pickup:           req.Pickup,
		Dropoff:          req.Dropoff,
		Category:         req.Category,
		PaymentMethod:    req.PaymentMethod,
		Status:           domain.RideStatusRequested,
		RequestExpiresAt: s.lifecycle.ExpiryDeadline(now),
		CreatedAt:        now,
	}
	ride.Price(s.engine, distance, req.DurationMin, req.AddOn)

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		if isDuplicateOn(err, "rider") {
			return nil, ErrRiderHasActiveRide
		}
		return nil, err
	}

	metrics.RidesRequested.WithLabelValues(string(ride.Category)).Inc()
	s.logger.InfoContext(ctx, "ride requested", "ride_id", ride.ID, "rider_id", ride.RiderID,
		"category", ride.Category, "fare", ride.Fare.Total)
	if s.notifications != nil {
		_ = s.notifications.NotifyRideRequested(ctx, ride)
	}

	return ride, nil
}

func (s *RideService) validateBookRequest(req *BookRideRequest) error {
	if req.RiderID == "" {
		return ErrInvalidAccountID
	}

	req.Pickup.Address = strings.TrimSpace(req.Pickup.Address)
	req.Dropoff.Address = strings.TrimSpace(req.Dropoff.Address)
	if req.Pickup.Address == "" || req.Dropoff.Address == "" {
		return ErrMissingAddress
	}
	if !geo.IsValidCoordinate(req.Pickup.Point()) {
		return ErrInvalidPickupLocation
	}
	if !geo.IsValidCoordinate(req.Dropoff.Point()) {
		return ErrInvalidDropoffLocation
	}
	if geo.SamePoint(req.Pickup.Point(), req.Dropoff.Point(), samePointTolerance) {
		return ErrSamePickupDropoff
	}

	if req.Category == "" {
		req.Category = domain.CategoryEconomy
	}
	if !req.Category.Valid() {
		return ErrInvalidCategory
	}

	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentMethodCash
	}
	if req.PaymentMethod != domain.PaymentMethodCash && req.PaymentMethod != domain.PaymentMethodCard {
		return ErrInvalidPaymentMethod
	}

	if !withinEstimateBounds(req.DistanceKm, req.DurationMin) {
		return ErrTripEstimateOutOfRange
	}
	if !validAddOn(req.AddOn) {
		return ErrInvalidAddOn
	}
	return nil
}

// UpdateAddOnRequest contains the parameters for raising the add-on.
type UpdateAddOnRequest struct {
	RiderID string
	RideID  string
	AddOn   float64
}

// UpdateAddOn raises the rider's add-on on an open request and reprices the
// ride. The add-on can only go up, and only until a driver accepts.
func (s *RideService) UpdateAddOn(ctx context.Context, req UpdateAddOnRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if !validAddOn(req.AddOn) {
		return nil, ErrInvalidAddOn
	}

	if _, err := s.lifecycle.ExpireStaleRequests(ctx); err != nil {
		return nil, err
	}

	ride, err := s.ownedRide(ctx, req.RiderID, req.RideID)
	if err != nil {
		return nil, err
	}

	switch {
	case ride.Status == domain.RideStatusCancelled && ride.CancelReason == ExpiryReason:
		return nil, ErrRideExpired
	case ride.Status != domain.RideStatusRequested || ride.DriverID != "":
		return nil, ErrRideNotOpen
	case !ride.RequestExpiresAt.After(s.now()):
		return nil, ErrRideExpired
	}

	if int64(math.Round(req.AddOn)) < ride.AddOn {
		return nil, ErrAddOnDecrease
	}

	ride.Price(s.engine, ride.DistanceKm, float64(ride.DurationMin), req.AddOn)
	if err := s.update(ctx, ride); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ride add-on raised", "ride_id", ride.ID, "add_on", ride.AddOn, "fare", ride.Fare.Total)
	return ride, nil
}

// UpdateRiderLocationRequest contains the rider's live position.
type UpdateRiderLocationRequest struct {
	RiderID  string
	RideID   string
	Location domain.Location
}

// UpdateRiderLocation records the rider's live position on an active ride.
func (s *RideService) UpdateRiderLocation(ctx context.Context, req UpdateRiderLocationRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if !geo.IsValidCoordinate(req.Location.Point()) {
		return nil, ErrInvalidLocation
	}

	ride, err := s.ownedRide(ctx, req.RiderID, req.RideID)
	if err != nil {
		return nil, err
	}
	if !ride.IsActive() {
		return nil, ErrRideNotActive
	}

	ride.RiderLocation = &domain.RiderLocation{
		Location:  domain.Location{Address: strings.TrimSpace(req.Location.Address), Lat: req.Location.Lat, Lng: req.Location.Lng},
		UpdatedAt: s.now(),
	}
	if err := s.update(ctx, ride); err != nil {
		return nil, err
	}
	return ride, nil
}

// ListMine returns the rider's rides, newest first.
func (s *RideService) ListMine(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	if riderID == "" {
		return nil, ErrInvalidAccountID
	}
	if _, err := s.lifecycle.ExpireStaleRequests(ctx); err != nil {
		return nil, err
	}
	return s.rideRepo.ListByRider(ctx, riderID)
}

// GetRideRequest identifies the ride and the caller.
type GetRideRequest struct {
	AccountID string
	Role      domain.Role
	RideID    string
}

// Get returns the ride as the caller may see it. The owning rider gets the
// full ride including the pickup code. A driver gets the driver view of a
// ride assigned to them or of a ride still open for claiming.
func (s *RideService) Get(ctx context.Context, req GetRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}

	if _, err := s.lifecycle.ExpireStaleRequests(ctx); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	switch req.Role {
	case domain.RoleRider:
		if ride.RiderID == req.AccountID {
			return ride, nil
		}
	case domain.RoleDriver:
		driver, err := s.driverRepo.GetByAccountID(ctx, req.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrRideAccessDenied
			}
			return nil, err
		}
		if ride.DriverID == driver.ID || ride.IsClaimable(s.now()) {
			return ride.DriverView(), nil
		}
	}
	return nil, ErrRideAccessDenied
}

// CancelRideRequest contains the parameters for cancelling a ride.
type CancelRideRequest struct {
	RiderID string
	RideID  string
	Reason  string
}

// CancelRide cancels a requested or accepted ride. A driver who had accepted
// the ride is released and becomes available again.
func (s *RideService) CancelRide(ctx context.Context, req CancelRideRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}

	if _, err := s.lifecycle.ExpireStaleRequests(ctx); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = DefaultCancelReason
	}

	var ride *domain.Ride
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		var err error
		ride, err = st.Rides.GetByID(ctx, req.RideID)
		if err != nil {
			return err
		}
		if ride.RiderID != req.RiderID {
			return ErrNotRideOwner
		}

		switch ride.Status {
		case domain.RideStatusCancelled:
			return ErrRideAlreadyCancelled
		case domain.RideStatusRequested, domain.RideStatusAccepted:
		default:
			return ErrRideCannotBeCancelled
		}

		releaseDriver := ride.Status == domain.RideStatusAccepted && ride.DriverID != ""
		if err := ride.TransitionTo(domain.RideStatusCancelled); err != nil {
			return err
		}
		ride.CancelledAt = s.now()
		ride.CancelReason = reason
		ride.RequestExpiresAt = time.Time{}

		if err := st.Rides.Update(ctx, ride); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrConcurrentUpdate
			}
			return err
		}

		if releaseDriver {
			return st.Drivers.SetAvailability(ctx, ride.DriverID, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RidesCancelled.Inc()
	s.logger.InfoContext(ctx, "ride cancelled", "ride_id", ride.ID, "rider_id", ride.RiderID, "reason", reason)

	if ride.DriverID != "" {
		if driver, err := s.driverRepo.GetByID(ctx, ride.DriverID); err == nil {
			s.presence.sync(ctx, driver)
		}
	}
	if s.notifications != nil {
		_ = s.notifications.NotifyRideCancelled(ctx, ride)
	}

	return ride, nil
}

func (s *RideService) ownedRide(ctx context.Context, riderID, rideID string) (*domain.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.RiderID != riderID {
		return nil, ErrNotRideOwner
	}
	return ride, nil
}

func (s *RideService) update(ctx context.Context, ride *domain.Ride) error {
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrConcurrentUpdate
		}
		return err
	}
	return nil
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func validAddOn(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= pricing.MaxAddOn
}

func withinEstimateBounds(distanceKm, durationMin float64) bool {
	return distanceKm <= pricing.MaxDistanceKm && durationMin <= pricing.MaxDurationMin
}
