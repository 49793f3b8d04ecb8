package domain

import (
	"errors"
	"fmt"
	"time"

	"ridehail/internal/geo"
	"ridehail/internal/pricing"
)

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested  RideStatus = "requested"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// AllowedTransitions is the ride state machine. Terminal states have no entry.
var AllowedTransitions = map[RideStatus][]RideStatus{
	RideStatusRequested:  {RideStatusAccepted, RideStatusCancelled},
	RideStatusAccepted:   {RideStatusInProgress, RideStatusCancelled},
	RideStatusInProgress: {RideStatusCompleted},
}

// CanTransition reports whether a ride may move from one status to another.
func CanTransition(from, to RideStatus) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is wrapped by every TransitionError.
var ErrInvalidTransition = errors.New("invalid ride status transition")

// TransitionError describes a rejected status change.
type TransitionError struct {
	From RideStatus
	To   RideStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition ride from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Category is a service tier. It selects both the tariff and which drivers
// may serve the ride.
type Category string

const (
	CategoryEconomy Category = pricing.CategoryEconomy
	CategoryComfort Category = pricing.CategoryComfort
	CategoryPremium Category = pricing.CategoryPremium
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEconomy, CategoryComfort, CategoryPremium:
		return true
	}
	return false
}

// PaymentMethod is a label recorded on the ride. No settlement happens.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

// Location is an already geocoded address.
type Location struct {
	Address string
	Lat     float64
	Lng     float64
}

// Point returns the coordinate part of l.
func (l Location) Point() geo.Point {
	return geo.Point{Lat: l.Lat, Lng: l.Lng}
}

// RiderLocation is the rider's live position during an open ride.
type RiderLocation struct {
	Location
	UpdatedAt time.Time
}

// Ride represents one trip request and its execution.
type Ride struct {
	ID            string
	RiderID       string
	DriverID      string // empty until accepted
	Pickup        Location
	Dropoff       Location
	Category      Category
	PaymentMethod PaymentMethod
	Status        RideStatus

	DistanceKm  float64
	DurationMin int
	AddOn       int64
	Fare        pricing.Breakdown

	RequestExpiresAt time.Time
	AcceptedAt       time.Time
	CancelledAt      time.Time
	CancelReason     string

	RiderLocation *RiderLocation

	PickupCode         string
	PickupCodeIssuedAt time.Time
	PickupVerifiedAt   time.Time

	StartedAt time.Time
	EndedAt   time.Time
	Rating    int // 0 until rated

	Version   int64
	CreatedAt time.Time
}

// Price recomputes the fare from the given trip estimate and add-on and
// stores the normalized inputs alongside it. It is the only way a fare is set.
func (r *Ride) Price(engine *pricing.Engine, distanceKm, durationMin, addOn float64) {
	b := engine.Breakdown(string(r.Category), distanceKm, durationMin, addOn)
	r.Fare = b
	r.DistanceKm = b.DistanceKm
	r.DurationMin = b.DurationMin
	r.AddOn = b.AddOn
}

// TransitionTo moves the ride to status to, or returns a *TransitionError.
func (r *Ride) TransitionTo(to RideStatus) error {
	if !CanTransition(r.Status, to) {
		return &TransitionError{From: r.Status, To: to}
	}
	r.Status = to
	return nil
}

// IsActive reports whether the ride is still open or running.
func (r *Ride) IsActive() bool {
	switch r.Status {
	case RideStatusRequested, RideStatusAccepted, RideStatusInProgress:
		return true
	}
	return false
}

// IsClaimable reports whether a driver could still accept the ride at now.
func (r *Ride) IsClaimable(now time.Time) bool {
	return r.Status == RideStatusRequested &&
		r.DriverID == "" &&
		r.RequestExpiresAt.After(now)
}

// PickupCodeIssued reports whether a pickup code was ever generated.
func (r *Ride) PickupCodeIssued() bool {
	return !r.PickupCodeIssuedAt.IsZero()
}

// PickupVerified reports whether the rider's pickup code was confirmed.
func (r *Ride) PickupVerified() bool {
	return !r.PickupVerifiedAt.IsZero()
}

// IsRated reports whether the rider already rated the ride.
func (r *Ride) IsRated() bool {
	return r.Rating != 0
}

// DriverView returns a copy safe to show to drivers: the pickup code is
// removed.
func (r *Ride) DriverView() *Ride {
	view := *r
	view.PickupCode = ""
	if r.RiderLocation != nil {
		loc := *r.RiderLocation
		view.RiderLocation = &loc
	}
	return &view
}
