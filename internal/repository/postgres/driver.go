package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const driverColumns = `
	id, account_id, vehicle_make, vehicle_model, vehicle_year, license_plate, vehicle_color, categories,
	license_number, is_available, location_address, location_lat, location_lng,
	rating_average, rating_count, total_rides, earnings, created_at`

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	var address sql.NullString
	var lat, lng sql.NullFloat64
	if driver.Location != nil {
		address = sql.NullString{String: driver.Location.Address, Valid: true}
		lat = sql.NullFloat64{Float64: driver.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: driver.Location.Lng, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.AccountID,
		driver.Vehicle.Make,
		driver.Vehicle.Model,
		driver.Vehicle.Year,
		driver.Vehicle.LicensePlate,
		driver.Vehicle.Color,
		pq.Array(categoryNames(driver.Vehicle.Categories)),
		driver.LicenseNumber,
		driver.Available,
		address,
		lat,
		lng,
		driver.Rating.Average,
		driver.Rating.Count,
		driver.TotalRides,
		driver.Earnings,
		driver.CreatedAt,
	)

	return translateError(err)
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetByAccountID retrieves the driver owned by an account.
func (r *DriverRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE account_id = $1`
	return r.get(ctx, query, accountID)
}

// UpdateProfile writes vehicle and license fields.
func (r *DriverRepository) UpdateProfile(ctx context.Context, driver *domain.Driver) error {
	query := `
		UPDATE drivers
		SET vehicle_make = $1, vehicle_model = $2, vehicle_year = $3, license_plate = $4,
			vehicle_color = $5, categories = $6, license_number = $7
		WHERE id = $8
	`

	result, err := r.q.ExecContext(ctx, query,
		driver.Vehicle.Make,
		driver.Vehicle.Model,
		driver.Vehicle.Year,
		driver.Vehicle.LicensePlate,
		driver.Vehicle.Color,
		pq.Array(categoryNames(driver.Vehicle.Categories)),
		driver.LicenseNumber,
		driver.ID,
	)
	if err != nil {
		return translateError(err)
	}

	return expectOneRow(result)
}

// SetAvailability sets the availability flag.
func (r *DriverRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	result, err := r.q.ExecContext(ctx, `UPDATE drivers SET is_available = $1 WHERE id = $2`, available, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// UpdateLocation stores the driver's current position.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, loc domain.Location) error {
	query := `UPDATE drivers SET location_address = $1, location_lat = $2, location_lng = $3 WHERE id = $4`

	result, err := r.q.ExecContext(ctx, query, loc.Address, loc.Lat, loc.Lng, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// MarkUnavailable flips an available driver to unavailable.
func (r *DriverRepository) MarkUnavailable(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE drivers SET is_available = FALSE WHERE id = $1 AND is_available`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	return nil
}

// RecordCompletion makes the driver available and adds the ride to the totals.
func (r *DriverRepository) RecordCompletion(ctx context.Context, id string, fare int64) error {
	query := `
		UPDATE drivers
		SET is_available = TRUE, total_rides = total_rides + 1, earnings = earnings + $1
		WHERE id = $2
	`

	result, err := r.q.ExecContext(ctx, query, fare, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// ApplyRating locks the driver row, folds score into the aggregate and writes
// it back. Callers run it inside a transaction so the lock is held until
// commit.
func (r *DriverRepository) ApplyRating(ctx context.Context, id string, score int) (domain.DriverRating, error) {
	var current domain.DriverRating
	err := r.q.QueryRowContext(ctx,
		`SELECT rating_average, rating_count FROM drivers WHERE id = $1 FOR UPDATE`, id,
	).Scan(&current.Average, &current.Count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DriverRating{}, repository.ErrNotFound
		}
		return domain.DriverRating{}, err
	}

	next := current.Add(score)

	_, err = r.q.ExecContext(ctx,
		`UPDATE drivers SET rating_average = $1, rating_count = $2 WHERE id = $3`,
		next.Average, next.Count, id,
	)
	if err != nil {
		return domain.DriverRating{}, err
	}

	return next, nil
}

func (r *DriverRepository) get(ctx context.Context, query string, arg any) (*domain.Driver, error) {
	var (
		driver     domain.Driver
		categories pq.StringArray
		address    sql.NullString
		lat, lng   sql.NullFloat64
	)

	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&driver.ID,
		&driver.AccountID,
		&driver.Vehicle.Make,
		&driver.Vehicle.Model,
		&driver.Vehicle.Year,
		&driver.Vehicle.LicensePlate,
		&driver.Vehicle.Color,
		&categories,
		&driver.LicenseNumber,
		&driver.Available,
		&address,
		&lat,
		&lng,
		&driver.Rating.Average,
		&driver.Rating.Count,
		&driver.TotalRides,
		&driver.Earnings,
		&driver.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	for _, c := range categories {
		driver.Vehicle.Categories = append(driver.Vehicle.Categories, domain.Category(c))
	}
	if lat.Valid && lng.Valid {
		driver.Location = &domain.Location{Address: address.String, Lat: lat.Float64, Lng: lng.Float64}
	}

	return &driver, nil
}

func categoryNames(categories []domain.Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return names
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
