package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const rideColumns = `
	id, rider_id, driver_id,
	pickup_address, pickup_lat, pickup_lng,
	dropoff_address, dropoff_lat, dropoff_lng,
	category, payment_method, status,
	distance_km, duration_min, addon,
	fare_base, fare_distance, fare_time, traffic_multiplier, fare_traffic, fare_subtotal, fare_total,
	request_expires_at, accepted_at, cancelled_at, cancel_reason,
	rider_location_address, rider_location_lat, rider_location_lng, rider_location_updated_at,
	pickup_code, pickup_code_issued_at, pickup_verified_at,
	started_at, ended_at, rating, version, created_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38)`

	if ride.Version == 0 {
		ride.Version = 1
	}

	args := append([]any{ride.ID}, rideValues(ride)...)
	args = append(args, ride.Version, ride.CreatedAt)

	_, err := r.q.ExecContext(ctx, query, args...)
	return translateError(err)
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// ListByRider returns the rider's rides, newest first.
func (r *RideRepository) ListByRider(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE rider_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, riderID)
}

// ListByDriver returns rides assigned to the driver, newest first.
func (r *RideRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, driverID)
}

// ListClaimable returns open rides in the given categories.
func (r *RideRepository) ListClaimable(ctx context.Context, categories []domain.Category, now time.Time) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE status = 'requested' AND driver_id IS NULL AND request_expires_at > $1 AND category = ANY($2)
		ORDER BY created_at`
	return r.list(ctx, query, now, pq.Array(categoryNames(categories)))
}

// HasActiveByRider reports whether the rider has an open or running ride.
func (r *RideRepository) HasActiveByRider(ctx context.Context, riderID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM rides WHERE rider_id = $1 AND status IN ('requested', 'accepted', 'in_progress'))`

	var exists bool
	err := r.q.QueryRowContext(ctx, query, riderID).Scan(&exists)
	return exists, err
}

// HasActiveByDriver reports whether the driver holds an accepted or running ride.
func (r *RideRepository) HasActiveByDriver(ctx context.Context, driverID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM rides WHERE driver_id = $1 AND status IN ('accepted', 'in_progress'))`

	var exists bool
	err := r.q.QueryRowContext(ctx, query, driverID).Scan(&exists)
	return exists, err
}

// ExpireRequested cancels stale requested rides in one statement.
func (r *RideRepository) ExpireRequested(ctx context.Context, now time.Time, reason string) (int64, error) {
	query := `
		UPDATE rides
		SET status = 'cancelled', cancelled_at = $1, cancel_reason = $2, version = version + 1
		WHERE status = 'requested' AND driver_id IS NULL AND request_expires_at <= $1
	`

	result, err := r.q.ExecContext(ctx, query, now, reason)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Claim assigns a driver with a conditional update. Exactly one of any number
// of concurrent claims on the same ride matches the WHERE clause.
func (r *RideRepository) Claim(ctx context.Context, p repository.ClaimParams) error {
	query := `
		UPDATE rides
		SET driver_id = $2, status = 'accepted', accepted_at = $3,
			pickup_code = $4, pickup_code_issued_at = $3, pickup_verified_at = NULL,
			request_expires_at = NULL, version = version + 1
		WHERE id = $1 AND status = 'requested' AND driver_id IS NULL AND request_expires_at > $3
	`

	result, err := r.q.ExecContext(ctx, query, p.RideID, p.DriverID, p.Now, p.PickupCode)
	if err != nil {
		return translateError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected != 1 {
		return repository.ErrConflict
	}

	return nil
}

// Update writes the ride guarded by its version.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET rider_id = $2, driver_id = $3,
			pickup_address = $4, pickup_lat = $5, pickup_lng = $6,
			dropoff_address = $7, dropoff_lat = $8, dropoff_lng = $9,
			category = $10, payment_method = $11, status = $12,
			distance_km = $13, duration_min = $14, addon = $15,
			fare_base = $16, fare_distance = $17, fare_time = $18, traffic_multiplier = $19,
			fare_traffic = $20, fare_subtotal = $21, fare_total = $22,
			request_expires_at = $23, accepted_at = $24, cancelled_at = $25, cancel_reason = $26,
			rider_location_address = $27, rider_location_lat = $28, rider_location_lng = $29,
			rider_location_updated_at = $30,
			pickup_code = $31, pickup_code_issued_at = $32, pickup_verified_at = $33,
			started_at = $34, ended_at = $35, rating = $36,
			version = version + 1
		WHERE id = $1 AND version = $37
	`

	args := append([]any{ride.ID}, rideValues(ride)...)
	args = append(args, ride.Version)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM rides WHERE id = $1)`, ride.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	ride.Version++
	return nil
}

func (r *RideRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// rideValues returns columns $2..$36 in rideColumns order.
func rideValues(ride *domain.Ride) []any {
	var (
		locAddress sql.NullString
		locLat     sql.NullFloat64
		locLng     sql.NullFloat64
		locUpdated sql.NullTime
		rating     sql.NullInt64
	)
	if ride.RiderLocation != nil {
		locAddress = sql.NullString{String: ride.RiderLocation.Address, Valid: true}
		locLat = sql.NullFloat64{Float64: ride.RiderLocation.Lat, Valid: true}
		locLng = sql.NullFloat64{Float64: ride.RiderLocation.Lng, Valid: true}
		locUpdated = nullTime(ride.RiderLocation.UpdatedAt)
	}
	if ride.Rating != 0 {
		rating = sql.NullInt64{Int64: int64(ride.Rating), Valid: true}
	}

	return []any{
		ride.RiderID,
		nullString(ride.DriverID),
		ride.Pickup.Address, ride.Pickup.Lat, ride.Pickup.Lng,
		ride.Dropoff.Address, ride.Dropoff.Lat, ride.Dropoff.Lng,
		ride.Category, ride.PaymentMethod, ride.Status,
		ride.DistanceKm, ride.DurationMin, ride.AddOn,
		ride.Fare.BaseFare, ride.Fare.DistanceFare, ride.Fare.TimeFare,
		ride.Fare.TrafficMultiplier, ride.Fare.TrafficCharge, ride.Fare.Subtotal, ride.Fare.Total,
		nullTime(ride.RequestExpiresAt), nullTime(ride.AcceptedAt), nullTime(ride.CancelledAt),
		nullString(ride.CancelReason),
		locAddress, locLat, locLng, locUpdated,
		nullString(ride.PickupCode), nullTime(ride.PickupCodeIssuedAt), nullTime(ride.PickupVerifiedAt),
		nullTime(ride.StartedAt), nullTime(ride.EndedAt), rating,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var (
		ride         domain.Ride
		driverID     sql.NullString
		expiresAt    sql.NullTime
		acceptedAt   sql.NullTime
		cancelledAt  sql.NullTime
		cancelReason sql.NullString
		locAddress   sql.NullString
		locLat       sql.NullFloat64
		locLng       sql.NullFloat64
		locUpdated   sql.NullTime
		pickupCode   sql.NullString
		codeIssued   sql.NullTime
		verifiedAt   sql.NullTime
		startedAt    sql.NullTime
		endedAt      sql.NullTime
		rating       sql.NullInt64
	)

	err := row.Scan(
		&ride.ID, &ride.RiderID, &driverID,
		&ride.Pickup.Address, &ride.Pickup.Lat, &ride.Pickup.Lng,
		&ride.Dropoff.Address, &ride.Dropoff.Lat, &ride.Dropoff.Lng,
		&ride.Category, &ride.PaymentMethod, &ride.Status,
		&ride.DistanceKm, &ride.DurationMin, &ride.AddOn,
		&ride.Fare.BaseFare, &ride.Fare.DistanceFare, &ride.Fare.TimeFare,
		&ride.Fare.TrafficMultiplier, &ride.Fare.TrafficCharge, &ride.Fare.Subtotal, &ride.Fare.Total,
		&expiresAt, &acceptedAt, &cancelledAt, &cancelReason,
		&locAddress, &locLat, &locLng, &locUpdated,
		&pickupCode, &codeIssued, &verifiedAt,
		&startedAt, &endedAt, &rating, &ride.Version, &ride.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.RequestExpiresAt = timeOrZero(expiresAt)
	ride.AcceptedAt = timeOrZero(acceptedAt)
	ride.CancelledAt = timeOrZero(cancelledAt)
	ride.CancelReason = cancelReason.String
	ride.PickupCode = pickupCode.String
	ride.PickupCodeIssuedAt = timeOrZero(codeIssued)
	ride.PickupVerifiedAt = timeOrZero(verifiedAt)
	ride.StartedAt = timeOrZero(startedAt)
	ride.EndedAt = timeOrZero(endedAt)
	ride.Rating = int(rating.Int64)

	if locLat.Valid && locLng.Valid {
		ride.RiderLocation = &domain.RiderLocation{
			Location:  domain.Location{Address: locAddress.String, Lat: locLat.Float64, Lng: locLng.Float64},
			UpdatedAt: timeOrZero(locUpdated),
		}
	}

	ride.Fare.Category = string(ride.Category)
	ride.Fare.AddOn = ride.AddOn
	ride.Fare.DistanceKm = ride.DistanceKm
	ride.Fare.DurationMin = ride.DurationMin

	return &ride, nil
}
