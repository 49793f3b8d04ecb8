package repository

import (
	"context"

	"ridehail/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByAccountID retrieves the driver owned by an account.
	GetByAccountID(ctx context.Context, accountID string) (*domain.Driver, error)

	// UpdateProfile writes vehicle and license fields.
	UpdateProfile(ctx context.Context, driver *domain.Driver) error

	// SetAvailability sets the availability flag unconditionally.
	SetAvailability(ctx context.Context, id string, available bool) error

	// UpdateLocation stores the driver's current position.
	UpdateLocation(ctx context.Context, id string, loc domain.Location) error

	// MarkUnavailable flips an available driver to unavailable.
	// Returns ErrConflict if the driver was already unavailable.
	MarkUnavailable(ctx context.Context, id string) error

	// RecordCompletion makes the driver available again and adds one ride and
	// the fare to the driver's totals.
	RecordCompletion(ctx context.Context, id string, fare int64) error

	// ApplyRating folds score into the driver's rating aggregate and returns
	// the new aggregate.
	ApplyRating(ctx context.Context, id string, score int) (domain.DriverRating, error)
}
