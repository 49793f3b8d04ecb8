package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"sort"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/geo"
	"ridehail/internal/logging"
	"ridehail/internal/metrics"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// DispatchConfig tunes the dispatch radius.
type DispatchConfig struct {
	BaseRadiusKm float64 // radius with no add-on
	MaxRadiusKm  float64
	AddOnPerKm   float64 // add-on amount that widens the radius by one km
}

// DefaultDispatchConfig returns 8 km base, 20 km cap, 1 km per 80 of add-on.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{BaseRadiusKm: 8, MaxRadiusKm: 20, AddOnPerKm: 80}
}

// DispatchService shows requested rides to eligible drivers and lets exactly
// one driver claim each ride.
type DispatchService struct {
	tx            repository.Transactor
	rideRepo      repository.RideRepository
	driverRepo    repository.DriverRepository
	lifecycle     *LifecycleService
	notifications *NotificationService
	presence      driverPresence
	logger        *slog.Logger
	cfg           DispatchConfig
	now           func() time.Time
	newCode       func() (string, error)
}

// NewDispatchService creates a new DispatchService. Zero config fields take
// their DefaultDispatchConfig value. Redis stores may be nil.
func NewDispatchService(
	tx repository.Transactor,
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	lifecycle *LifecycleService,
	notifications *NotificationService,
	locationStore redis.LocationStoreInterface,
	cacheStore redis.DriverCacheInterface,
	logger *slog.Logger,
	cfg DispatchConfig,
) *DispatchService {
	def := DefaultDispatchConfig()
	if cfg.BaseRadiusKm <= 0 {
		cfg.BaseRadiusKm = def.BaseRadiusKm
	}
	if cfg.MaxRadiusKm < cfg.BaseRadiusKm {
		cfg.MaxRadiusKm = math.Max(def.MaxRadiusKm, cfg.BaseRadiusKm)
	}
	if cfg.AddOnPerKm <= 0 {
		cfg.AddOnPerKm = def.AddOnPerKm
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &DispatchService{
		tx:            tx,
		rideRepo:      rideRepo,
		driverRepo:    driverRepo,
		lifecycle:     lifecycle,
		notifications: notifications,
		presence:      driverPresence{locations: locationStore, cache: cacheStore, logger: logger},
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
		newCode:       generatePickupCode,
	}
}

// DispatchRadiusKm returns how far away a driver may be to see a ride with
// the given add-on.
func (s *DispatchService) DispatchRadiusKm(addOn int64) float64 {
	boost := math.Floor(float64(addOn) / s.cfg.AddOnPerKm)
	if boost < 0 {
		boost = 0
	}
	return math.Min(s.cfg.MaxRadiusKm, s.cfg.BaseRadiusKm+boost)
}

// EligibleRidesRequest contains the parameters for listing claimable rides.
type EligibleRidesRequest struct {
	AccountID string
	Limit     int // 0 means no limit
}

// EligibleRide is one entry of a driver's ride feed.
type EligibleRide struct {
	Ride             *domain.Ride // driver view, no pickup code
	PickupDistanceKm *float64     // nil when the driver has no usable location
	DispatchRadiusKm float64
}

// EligibleRides lists the requested rides the driver could accept now,
// nearest pickup first and, at equal distance, highest fare first.
func (s *DispatchService) EligibleRides(ctx context.Context, req EligibleRidesRequest) ([]EligibleRide, error) {
	if req.AccountID == "" {
		return nil, ErrInvalidAccountID
	}

	if _, err := s.lifecycle.ExpireStaleRequests(ctx); err != nil {
		return nil, err
	}

	driver, err := s.driverRepo.GetByAccountID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.rideRepo.ListClaimable(ctx, driver.Vehicle.Categories, s.now())
	if err != nil {
		return nil, err
	}

	result := make([]EligibleRide, 0, len(candidates))
	for _, ride := range candidates {
		radius := s.DispatchRadiusKm(ride.AddOn)
		distance, measured := pickupDistance(driver, ride)
		if measured && distance > radius {
			continue
		}

		entry := EligibleRide{Ride: ride.DriverView(), DispatchRadiusKm: radius}
		if measured {
			d := distance
			entry.PickupDistanceKm = &d
		}
		result = append(result, entry)
	}

	sort.SliceStable(result, func(i, j int) bool {
		di, dj := sortDistance(result[i]), sortDistance(result[j])
		if di != dj {
			return di < dj
		}
		return result[i].Ride.Fare.Total > result[j].Ride.Fare.Total
	})

	if req.Limit > 0 && len(result) > req.Limit {
		result = result[:req.Limit]
	}
	return result, nil
}

// AcceptRideRequest contains the parameters for claiming a ride.
type AcceptRideRequest struct {
	AccountID string
	RideID    string
}

// AcceptRide claims the ride for the calling driver. The claim is a
// conditional write, so when several drivers race exactly one wins and the
// rest get ErrRideAlreadyClaimed. The driver becomes unavailable in the same
// transaction.
func (s *DispatchService) AcceptRide(ctx context.Context, req AcceptRideRequest) (*domain.Ride, error) {
	if req.AccountID == "" {
		return nil, ErrInvalidAccountID
	}
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, driver, err := s.prepareClaim(ctx, req)
	if err != nil {
		s.recordClaim(err)
		return nil, err
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate pickup code: %w", err)
	}

	var accepted *domain.Ride
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		err := st.Rides.Claim(ctx, repository.ClaimParams{
			RideID:     ride.ID,
			DriverID:   driver.ID,
			PickupCode: code,
			Now:        s.now(),
		})
		switch {
		case errors.Is(err, repository.ErrConflict):
			return ErrRideAlreadyClaimed
		case isDuplicateOn(err, "driver"):
			return ErrDriverHasActiveRide
		case err != nil:
			return err
		}

		if err := st.Drivers.MarkUnavailable(ctx, driver.ID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDriverUnavailable
			}
			return err
		}

		accepted, err = st.Rides.GetByID(ctx, ride.ID)
		return err
	})
	s.recordClaim(err)
	if err != nil {
		return nil, err
	}

	metrics.TimeToAccept.Observe(accepted.AcceptedAt.Sub(accepted.CreatedAt).Seconds())
	s.logger.InfoContext(ctx, "ride accepted", "ride_id", accepted.ID, "driver_id", driver.ID)

	driver.Available = false
	s.presence.busy(ctx, driver)
	if s.notifications != nil {
		_ = s.notifications.NotifyDriverAssigned(ctx, accepted, driver)
	}

	return accepted.DriverView(), nil
}

// prepareClaim re-checks every precondition against fresh state. Eligibility
// shown earlier may be stale by now.
func (s *DispatchService) prepareClaim(ctx context.Context, req AcceptRideRequest) (*domain.Ride, *domain.Driver, error) {
	if _, err := s.lifecycle.ExpireStaleRequests(ctx); err != nil {
		return nil, nil, err
	}

	driver, err := s.driverRepo.GetByAccountID(ctx, req.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if !driver.Available {
		return nil, nil, ErrDriverUnavailable
	}

	busy, err := s.rideRepo.HasActiveByDriver(ctx, driver.ID)
	if err != nil {
		return nil, nil, err
	}
	if busy {
		return nil, nil, ErrDriverHasActiveRide
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case ride.DriverID != "":
		return nil, nil, ErrRideAlreadyClaimed
	case ride.Status == domain.RideStatusCancelled && ride.CancelReason == ExpiryReason:
		return nil, nil, ErrRideExpired
	case ride.Status != domain.RideStatusRequested:
		return nil, nil, ErrRideNotAvailable
	case !ride.RequestExpiresAt.After(s.now()):
		return nil, nil, ErrRideExpired
	}

	if !driver.CanServe(ride.Category) {
		return nil, nil, ErrCategoryNotServed
	}
	if distance, measured := pickupDistance(driver, ride); measured && distance > s.DispatchRadiusKm(ride.AddOn) {
		return nil, nil, ErrOutsideDispatchRadius
	}

	return ride, driver, nil
}

func (s *DispatchService) recordClaim(err error) {
	switch {
	case err == nil:
		metrics.ClaimAttempts.WithLabelValues(metrics.ClaimWon).Inc()
	case errors.Is(err, ErrRideAlreadyClaimed):
		metrics.ClaimAttempts.WithLabelValues(metrics.ClaimLost).Inc()
	default:
		metrics.ClaimAttempts.WithLabelValues(metrics.ClaimRejected).Inc()
	}
}

// pickupDistance returns the great-circle distance from the driver to the
// ride's pickup, and false when either position is unusable.
func pickupDistance(driver *domain.Driver, ride *domain.Ride) (float64, bool) {
	if driver.Location == nil {
		return 0, false
	}
	return geo.DistanceKm(driver.Location.Point(), ride.Pickup.Point())
}

func sortDistance(e EligibleRide) float64 {
	if e.PickupDistanceKm == nil {
		return math.Inf(1)
	}
	return *e.PickupDistanceKm
}

func isDuplicateOn(err error, field string) bool {
	var dup *repository.DuplicateError
	return errors.As(err, &dup) && dup.Field == field
}

var pickupCodeSpace = big.NewInt(10000)

// generatePickupCode returns a uniformly random 4-digit code.
func generatePickupCode() (string, error) {
	n, err := rand.Int(rand.Reader, pickupCodeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
