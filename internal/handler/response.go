package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/pricing"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Unexpected errors are attached to the context for the APM middleware and
// are not echoed to the client.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidAccountID),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDropoffLocation),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrMissingAddress),
		errors.Is(err, service.ErrSamePickupDropoff),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrMissingTripEstimate),
		errors.Is(err, service.ErrTripEstimateOutOfRange),
		errors.Is(err, service.ErrInvalidAddOn),
		errors.Is(err, service.ErrAddOnDecrease),
		errors.Is(err, service.ErrInvalidPickupCodeFormat),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrMissingVehicle):
		return http.StatusBadRequest

	// Authentication
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Forbidden
	case errors.Is(err, service.ErrNotRideOwner),
		errors.Is(err, service.ErrDriverNotAssignedToRide),
		errors.Is(err, service.ErrRideAccessDenied):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrRiderHasActiveRide),
		errors.Is(err, service.ErrRideNotOpen),
		errors.Is(err, service.ErrRideExpired),
		errors.Is(err, service.ErrRideAlreadyClaimed),
		errors.Is(err, service.ErrRideNotAvailable),
		errors.Is(err, service.ErrDriverUnavailable),
		errors.Is(err, service.ErrDriverHasActiveRide),
		errors.Is(err, service.ErrCategoryNotServed),
		errors.Is(err, service.ErrOutsideDispatchRadius),
		errors.Is(err, service.ErrRideNotAccepted),
		errors.Is(err, service.ErrPickupCodeMismatch),
		errors.Is(err, service.ErrPickupNotVerified),
		errors.Is(err, service.ErrRideAlreadyCancelled),
		errors.Is(err, service.ErrRideCannotBeCancelled),
		errors.Is(err, service.ErrRideNotActive),
		errors.Is(err, service.ErrRideNotCompleted),
		errors.Is(err, service.ErrRideAlreadyRated),
		errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// LocationBody is an address with coordinates.
type LocationBody struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (l LocationBody) toDomain() domain.Location {
	return domain.Location{Address: l.Address, Lat: l.Lat, Lng: l.Lng}
}

func locationBody(l domain.Location) LocationBody {
	return LocationBody{Address: l.Address, Lat: l.Lat, Lng: l.Lng}
}

// LocationInput is a location in a request body. Missing coordinates fail
// binding instead of decoding to (0, 0).
type LocationInput struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat" binding:"required"`
	Lng     *float64 `json:"lng" binding:"required"`
}

func (l LocationInput) toDomain() domain.Location {
	loc := domain.Location{Address: l.Address}
	if l.Lat != nil {
		loc.Lat = *l.Lat
	}
	if l.Lng != nil {
		loc.Lng = *l.Lng
	}
	return loc
}

// RiderLocationBody is the rider's live position.
type RiderLocationBody struct {
	LocationBody
	UpdatedAt string `json:"updated_at"`
}

// RideResponse is the HTTP representation of a ride. The pickup code is only
// present on the rider's own view.
type RideResponse struct {
	ID               string             `json:"id"`
	RiderID          string             `json:"rider_id"`
	DriverID         string             `json:"driver_id,omitempty"`
	Pickup           LocationBody       `json:"pickup"`
	Dropoff          LocationBody       `json:"dropoff"`
	RideType         string             `json:"ride_type"`
	PaymentMethod    string             `json:"payment_method"`
	Status           string             `json:"status"`
	DistanceKm       float64            `json:"distance_km"`
	DurationMin      int                `json:"duration_min"`
	UserPriceAddOn   int64              `json:"user_price_addon"`
	Fare             pricing.Breakdown  `json:"fare"`
	FareTotal        int64              `json:"fare_total"`
	RequestExpiresAt string             `json:"request_expires_at"`
	AcceptedAt       string             `json:"accepted_at,omitempty"`
	CancelledAt      string             `json:"cancelled_at,omitempty"`
	CancelReason     string             `json:"cancel_reason,omitempty"`
	RiderLocation    *RiderLocationBody `json:"rider_location,omitempty"`
	PickupCode       string             `json:"pickup_code,omitempty"`
	PickupVerified   bool               `json:"pickup_verified"`
	StartedAt        string             `json:"started_at,omitempty"`
	EndedAt          string             `json:"ended_at,omitempty"`
	Rating           int                `json:"rating,omitempty"`
	CreatedAt        string             `json:"created_at"`
}

func rideResponse(r *domain.Ride) RideResponse {
	resp := RideResponse{
		ID:               r.ID,
		RiderID:          r.RiderID,
		DriverID:         r.DriverID,
		Pickup:           locationBody(r.Pickup),
		Dropoff:          locationBody(r.Dropoff),
		RideType:         string(r.Category),
		PaymentMethod:    string(r.PaymentMethod),
		Status:           string(r.Status),
		DistanceKm:       r.DistanceKm,
		DurationMin:      r.DurationMin,
		UserPriceAddOn:   r.AddOn,
		Fare:             r.Fare,
		FareTotal:        r.Fare.Total,
		RequestExpiresAt: formatTime(r.RequestExpiresAt),
		AcceptedAt:       formatTime(r.AcceptedAt),
		CancelledAt:      formatTime(r.CancelledAt),
		CancelReason:     r.CancelReason,
		PickupCode:       r.PickupCode,
		PickupVerified:   r.PickupVerified(),
		StartedAt:        formatTime(r.StartedAt),
		EndedAt:          formatTime(r.EndedAt),
		Rating:           r.Rating,
		CreatedAt:        formatTime(r.CreatedAt),
	}
	if r.RiderLocation != nil {
		resp.RiderLocation = &RiderLocationBody{
			LocationBody: locationBody(r.RiderLocation.Location),
			UpdatedAt:    formatTime(r.RiderLocation.UpdatedAt),
		}
	}
	return resp
}

func rideResponses(rides []*domain.Ride) []RideResponse {
	out := make([]RideResponse, len(rides))
	for i, r := range rides {
		out[i] = rideResponse(r)
	}
	return out
}

// VehicleBody describes a driver's vehicle.
type VehicleBody struct {
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Year         int      `json:"year"`
	LicensePlate string   `json:"license_plate"`
	Color        string   `json:"color"`
	Categories   []string `json:"categories,omitempty"`
}

func (v VehicleBody) toDomain() *domain.Vehicle {
	return &domain.Vehicle{
		Make:         v.Make,
		Model:        v.Model,
		Year:         v.Year,
		LicensePlate: v.LicensePlate,
		Color:        v.Color,
		Categories:   toCategories(v.Categories),
	}
}

// DriverResponse is the HTTP response for driver data.
type DriverResponse struct {
	ID            string        `json:"id"`
	AccountID     string        `json:"account_id"`
	Vehicle       VehicleBody   `json:"vehicle"`
	LicenseNumber string        `json:"license_number"`
	Available     bool          `json:"available"`
	Location      *LocationBody `json:"location,omitempty"`
	Rating        float64       `json:"rating"`
	RatingCount   int           `json:"rating_count"`
	TotalRides    int           `json:"total_rides"`
	Earnings      int64         `json:"earnings"`
	CreatedAt     string        `json:"created_at"`
}

func driverResponse(d *domain.Driver) *DriverResponse {
	if d == nil {
		return nil
	}
	categories := make([]string, len(d.Vehicle.Categories))
	for i, c := range d.Vehicle.Categories {
		categories[i] = string(c)
	}
	resp := &DriverResponse{
		ID:        d.ID,
		AccountID: d.AccountID,
		Vehicle: VehicleBody{
			Make:         d.Vehicle.Make,
			Model:        d.Vehicle.Model,
			Year:         d.Vehicle.Year,
			LicensePlate: d.Vehicle.LicensePlate,
			Color:        d.Vehicle.Color,
			Categories:   categories,
		},
		LicenseNumber: d.LicenseNumber,
		Available:     d.Available,
		Rating:        d.Rating.Average,
		RatingCount:   d.Rating.Count,
		TotalRides:    d.TotalRides,
		Earnings:      d.Earnings,
		CreatedAt:     formatTime(d.CreatedAt),
	}
	if d.Location != nil {
		loc := locationBody(*d.Location)
		resp.Location = &loc
	}
	return resp
}

// AccountResponse is the public part of an account.
type AccountResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func accountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Role:      string(a.Role),
		CreatedAt: formatTime(a.CreatedAt),
	}
}

func toCategories(in []string) []domain.Category {
	if in == nil {
		return nil
	}
	out := make([]domain.Category, len(in))
	for i, c := range in {
		out[i] = domain.Category(c)
	}
	return out
}

// formatTime renders t as RFC 3339, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
