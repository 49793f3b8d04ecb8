package repository

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// ClaimParams describes a conditional ride claim.
type ClaimParams struct {
	RideID     string
	DriverID   string
	PickupCode string
	Now        time.Time
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// ListByRider returns the rider's rides, newest first.
	ListByRider(ctx context.Context, riderID string) ([]*domain.Ride, error)

	// ListByDriver returns rides assigned to the driver, newest first.
	ListByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error)

	// ListClaimable returns requested, unassigned rides in one of the given
	// categories whose deadline is after now.
	ListClaimable(ctx context.Context, categories []domain.Category, now time.Time) ([]*domain.Ride, error)

	// HasActiveByRider reports whether the rider has a requested, accepted or
	// in-progress ride.
	HasActiveByRider(ctx context.Context, riderID string) (bool, error)

	// HasActiveByDriver reports whether the driver holds an accepted or
	// in-progress ride.
	HasActiveByDriver(ctx context.Context, driverID string) (bool, error)

	// ExpireRequested cancels every requested, unassigned ride whose deadline
	// is at or before now and returns how many rows changed.
	ExpireRequested(ctx context.Context, now time.Time, reason string) (int64, error)

	// Claim assigns the driver only if the ride is still requested,
	// unassigned and unexpired at p.Now. Returns ErrConflict otherwise.
	Claim(ctx context.Context, p ClaimParams) error

	// Update writes the ride if its stored version equals ride.Version and
	// bumps the version. Returns ErrConflict on a version mismatch.
	Update(ctx context.Context, ride *domain.Ride) error
}
