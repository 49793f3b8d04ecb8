package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/geo"
	"ridehail/internal/middleware"
	"ridehail/internal/pricing"
	"ridehail/internal/service"
)

// RideHandler handles the rider's ride endpoints.
type RideHandler struct {
	rideService   *service.RideService
	ratingService *service.RatingService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, ratingService *service.RatingService) *RideHandler {
	return &RideHandler{
		rideService:   rideService,
		ratingService: ratingService,
	}
}

// QuoteRequest is the HTTP request body for fare quotes.
type QuoteRequest struct {
	DistanceKm  float64    `json:"distance_km"`
	DurationMin float64    `json:"duration_min"`
	AddOn       float64    `json:"user_price_addon"`
	Pickup      *PointBody `json:"pickup,omitempty"`
}

// PointBody is a bare coordinate.
type PointBody struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// QuoteResponse lists one fare per ride type, cheapest first.
type QuoteResponse struct {
	Quotes        []pricing.Breakdown `json:"quotes"`
	NearbyDrivers *int                `json:"nearby_drivers,omitempty"`
}

// BookRideRequest is the HTTP request body for booking a ride.
type BookRideRequest struct {
	Pickup        LocationInput `json:"pickup"`
	Dropoff       LocationInput `json:"dropoff"`
	RideType      string        `json:"ride_type,omitempty"`
	PaymentMethod string        `json:"payment_method,omitempty"` // cash or card
	DistanceKm    float64       `json:"distance_km,omitempty"`
	DurationMin   float64       `json:"duration_min,omitempty"`
	AddOn         float64       `json:"user_price_addon,omitempty"`
}

// UpdateAddOnRequest is the HTTP request body for raising the add-on.
type UpdateAddOnRequest struct {
	AddOn float64 `json:"user_price_addon"`
}

// CancelRideRequest is the HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RateRideRequest is the HTTP request body for rating a ride.
type RateRideRequest struct {
	Rating int `json:"rating"`
}

// Quote handles POST /v1/rides/quote
func (h *RideHandler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	in := service.QuoteRequest{
		DistanceKm:  req.DistanceKm,
		DurationMin: req.DurationMin,
		AddOn:       req.AddOn,
	}
	if req.Pickup != nil {
		in.Pickup = &geo.Point{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng}
	}

	result, err := h.rideService.Quotes(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, QuoteResponse{Quotes: result.Quotes, NearbyDrivers: result.NearbyDrivers})
}

// Book handles POST /v1/rides
func (h *RideHandler) Book(c *gin.Context) {
	var req BookRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.rideService.Book(c.Request.Context(), service.BookRideRequest{
		RiderID:       middleware.CallerID(c),
		Pickup:        req.Pickup.toDomain(),
		Dropoff:       req.Dropoff.toDomain(),
		Category:      domain.Category(req.RideType),
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		DistanceKm:    req.DistanceKm,
		DurationMin:   req.DurationMin,
		AddOn:         req.AddOn,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, rideResponse(ride))
}

// ListMine handles GET /v1/rides/mine
func (h *RideHandler) ListMine(c *gin.Context) {
	rides, err := h.rideService.ListMine(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponses(rides))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.Get(c.Request.Context(), service.GetRideRequest{
		AccountID: middleware.CallerID(c),
		Role:      middleware.CallerRole(c),
		RideID:    c.Param("id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// UpdateAddOn handles PUT /v1/rides/:id/addon
func (h *RideHandler) UpdateAddOn(c *gin.Context) {
	var req UpdateAddOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.rideService.UpdateAddOn(c.Request.Context(), service.UpdateAddOnRequest{
		RiderID: middleware.CallerID(c),
		RideID:  c.Param("id"),
		AddOn:   req.AddOn,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// UpdateRiderLocation handles PUT /v1/rides/:id/rider-location
func (h *RideHandler) UpdateRiderLocation(c *gin.Context) {
	var req LocationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.rideService.UpdateRiderLocation(c.Request.Context(), service.UpdateRiderLocationRequest{
		RiderID:  middleware.CallerID(c),
		RideID:   c.Param("id"),
		Location: req.toDomain(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// CancelRide handles PUT /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	var req CancelRideRequest
	// The body is optional.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), service.CancelRideRequest{
		RiderID: middleware.CallerID(c),
		RideID:  c.Param("id"),
		Reason:  req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// RateRide handles PUT /v1/rides/:id/rate
func (h *RideHandler) RateRide(c *gin.Context) {
	var req RateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.ratingService.RateRide(c.Request.Context(), service.RateRideRequest{
		RiderID: middleware.CallerID(c),
		RideID:  c.Param("id"),
		Rating:  req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}
