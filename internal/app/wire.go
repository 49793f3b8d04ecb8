package app

import (
	"log/slog"

	"ridehail/internal/config"
	"ridehail/internal/events"
	"ridehail/internal/handler"
	"ridehail/internal/pricing"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

// Backends are the stores and side channels the services run on. The Redis
// stores may be nil.
type Backends struct {
	Tx        repository.Transactor
	Rides     repository.RideRepository
	Drivers   repository.DriverRepository
	Accounts  repository.AccountRepository
	Locations redis.LocationStoreInterface
	Cache     redis.DriverCacheInterface
	Locks     redis.LockStoreInterface
	Publisher events.Publisher
	Issuer    service.TokenIssuer
	Logger    *slog.Logger
}

// Services groups the wired service layer.
type Services struct {
	Lifecycle *service.LifecycleService
	Dispatch  *service.DispatchService
	Pickup    *service.PickupService
	Trips     *service.TripService
	Rides     *service.RideService
	Ratings   *service.RatingService
	Drivers   *service.DriverService
	Accounts  *service.AccountService
	Sweeper   *service.Sweeper
}

// NewServices wires the service layer from configuration and backends.
func NewServices(cfg *config.Config, b Backends) *Services {
	engine := pricing.NewEngine(pricing.Params{
		FreeFlowSpeedKmH: cfg.Pricing.FreeFlowSpeedKmH,
		MinBaselineMin:   cfg.Pricing.MinBaselineMin,
		MinMultiplier:    cfg.Pricing.MinMultiplier,
		MaxMultiplier:    cfg.Pricing.MaxMultiplier,
	})

	notifications := service.NewNotificationService(b.Logger, b.Publisher)
	lifecycle := service.NewLifecycleService(b.Rides, notifications, b.Logger, cfg.Dispatch.RequestTimeout)
	dispatch := service.NewDispatchService(b.Tx, b.Rides, b.Drivers, lifecycle, notifications,
		b.Locations, b.Cache, b.Logger, service.DispatchConfig{
			BaseRadiusKm: cfg.Dispatch.BaseRadiusKm,
			MaxRadiusKm:  cfg.Dispatch.MaxRadiusKm,
			AddOnPerKm:   cfg.Dispatch.AddOnPerKm,
		})

	return &Services{
		Lifecycle: lifecycle,
		Dispatch:  dispatch,
		Pickup:    service.NewPickupService(b.Rides, b.Drivers, b.Logger),
		Trips:     service.NewTripService(b.Tx, b.Drivers, notifications, b.Locations, b.Cache, b.Logger),
		Rides: service.NewRideService(b.Tx, b.Rides, b.Drivers, engine, lifecycle, dispatch,
			notifications, b.Locations, b.Cache, b.Logger),
		Ratings:  service.NewRatingService(b.Tx, notifications, b.Cache, b.Logger),
		Drivers:  service.NewDriverService(b.Drivers, b.Rides, b.Locations, b.Cache, b.Logger),
		Accounts: service.NewAccountService(b.Tx, b.Accounts, b.Issuer, b.Logger),
		Sweeper:  service.NewSweeper(lifecycle, b.Locks, cfg.Sweeper.Interval, b.Logger),
	}
}

// RouterDeps returns router dependencies with the handlers filled in.
func (s *Services) RouterDeps() RouterDeps {
	return RouterDeps{
		AccountHandler: handler.NewAccountHandler(s.Accounts),
		RideHandler:    handler.NewRideHandler(s.Rides, s.Ratings),
		DriverHandler:  handler.NewDriverHandler(s.Drivers, s.Dispatch),
		TripHandler:    handler.NewTripHandler(s.Pickup, s.Trips),
	}
}
