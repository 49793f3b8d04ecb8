package service

import (
	"context"
	"log/slog"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/geo"
	"ridehail/internal/redis"
)

// driverPresence keeps the Redis copies of driver state in step with the
// database: the geo mirror of available drivers and the profile cache.
// Both are best effort. A failed Redis write is logged, never returned.
type driverPresence struct {
	locations redis.LocationStoreInterface
	cache     redis.DriverCacheInterface
	logger    *slog.Logger
}

// sync mirrors the driver's availability and location and drops the cached
// profile.
func (p driverPresence) sync(ctx context.Context, driver *domain.Driver) {
	if p.locations != nil {
		var err error
		if driver.Available && driver.Location != nil && geo.IsValidCoordinate(driver.Location.Point()) {
			err = p.locations.UpdateLocation(ctx, driver.ID, driver.Location.Lat, driver.Location.Lng)
		} else {
			err = p.locations.RemoveLocation(ctx, driver.ID)
		}
		if err != nil {
			p.logger.WarnContext(ctx, "driver location mirror update failed", "driver_id", driver.ID, "error", err)
		}
	}
	p.invalidate(ctx, driver.AccountID)
}

// busy removes a driver that just took a ride from the mirror.
func (p driverPresence) busy(ctx context.Context, driver *domain.Driver) {
	if p.locations != nil {
		if err := p.locations.RemoveLocation(ctx, driver.ID); err != nil {
			p.logger.WarnContext(ctx, "driver location mirror remove failed", "driver_id", driver.ID, "error", err)
		}
	}
	p.invalidate(ctx, driver.AccountID)
}

func (p driverPresence) invalidate(ctx context.Context, accountID string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.InvalidateDriver(ctx, accountID); err != nil {
		p.logger.WarnContext(ctx, "driver cache invalidation failed", "account_id", accountID, "error", err)
	}
}

func (p driverPresence) cached(ctx context.Context, accountID string) *domain.Driver {
	if p.cache == nil {
		return nil
	}
	cached, err := p.cache.GetDriver(ctx, accountID)
	if err != nil || cached == nil {
		return nil
	}
	return cachedToDriver(cached)
}

func (p driverPresence) store(ctx context.Context, driver *domain.Driver) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetDriver(ctx, driverToCached(driver)); err != nil {
		p.logger.WarnContext(ctx, "driver cache write failed", "account_id", driver.AccountID, "error", err)
	}
}

func driverToCached(d *domain.Driver) *redis.CachedDriver {
	categories := make([]string, len(d.Vehicle.Categories))
	for i, c := range d.Vehicle.Categories {
		categories[i] = string(c)
	}
	cached := &redis.CachedDriver{
		ID:            d.ID,
		AccountID:     d.AccountID,
		Make:          d.Vehicle.Make,
		Model:         d.Vehicle.Model,
		Year:          d.Vehicle.Year,
		LicensePlate:  d.Vehicle.LicensePlate,
		Color:         d.Vehicle.Color,
		Categories:    categories,
		LicenseNumber: d.LicenseNumber,
		Available:     d.Available,
		RatingAverage: d.Rating.Average,
		RatingCount:   d.Rating.Count,
		TotalRides:    d.TotalRides,
		Earnings:      d.Earnings,
		CreatedAt:     d.CreatedAt.UnixNano(),
	}
	if d.Location != nil {
		cached.HasLocation = true
		cached.Address = d.Location.Address
		cached.Lat = d.Location.Lat
		cached.Lng = d.Location.Lng
	}
	return cached
}

func cachedToDriver(c *redis.CachedDriver) *domain.Driver {
	categories := make([]domain.Category, len(c.Categories))
	for i, name := range c.Categories {
		categories[i] = domain.Category(name)
	}
	d := &domain.Driver{
		ID:        c.ID,
		AccountID: c.AccountID,
		Vehicle: domain.Vehicle{
			Make:         c.Make,
			Model:        c.Model,
			Year:         c.Year,
			LicensePlate: c.LicensePlate,
			Color:        c.Color,
			Categories:   categories,
		},
		LicenseNumber: c.LicenseNumber,
		Available:     c.Available,
		Rating:        domain.DriverRating{Average: c.RatingAverage, Count: c.RatingCount},
		TotalRides:    c.TotalRides,
		Earnings:      c.Earnings,
		CreatedAt:     time.Unix(0, c.CreatedAt).UTC(),
	}
	if c.HasLocation {
		d.Location = &domain.Location{Address: c.Address, Lat: c.Lat, Lng: c.Lng}
	}
	return d
}
