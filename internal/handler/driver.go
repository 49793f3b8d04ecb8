package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridehail/internal/middleware"
	"ridehail/internal/service"
)

// DriverHandler handles the driver's profile, presence and ride feed.
type DriverHandler struct {
	driverService   *service.DriverService
	dispatchService *service.DispatchService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService, dispatchService *service.DispatchService) *DriverHandler {
	return &DriverHandler{
		driverService:   driverService,
		dispatchService: dispatchService,
	}
}

// UpdateProfileRequest is the HTTP request body for profile changes.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Make          *string  `json:"make,omitempty"`
	Model         *string  `json:"model,omitempty"`
	Year          *int     `json:"year,omitempty"`
	LicensePlate  *string  `json:"license_plate,omitempty"`
	Color         *string  `json:"color,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	LicenseNumber *string  `json:"license_number,omitempty"`
}

// AvailabilityRequest is the HTTP request body for going online or offline.
type AvailabilityRequest struct {
	Available *bool `json:"available"`
}

// AvailableRideResponse is one entry of the driver's ride feed.
type AvailableRideResponse struct {
	RideResponse
	PickupDistanceKm *float64 `json:"pickup_distance_km"`
	DispatchRadiusKm float64  `json:"dispatch_radius_km"`
}

// GetProfile handles GET /v1/driver/profile
func (h *DriverHandler) GetProfile(c *gin.Context) {
	driver, err := h.driverService.GetProfile(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, driverResponse(driver))
}

// UpdateProfile handles PUT /v1/driver/profile
func (h *DriverHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	driver, err := h.driverService.UpdateProfile(c.Request.Context(), service.UpdateProfileRequest{
		AccountID:     middleware.CallerID(c),
		Make:          req.Make,
		Model:         req.Model,
		Year:          req.Year,
		LicensePlate:  req.LicensePlate,
		Color:         req.Color,
		Categories:    toCategories(req.Categories),
		LicenseNumber: req.LicenseNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, driverResponse(driver))
}

// SetAvailability handles PUT /v1/driver/availability
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		badRequest(c, "available is required")
		return
	}

	driver, err := h.driverService.SetAvailability(c.Request.Context(), service.SetAvailabilityRequest{
		AccountID: middleware.CallerID(c),
		Available: *req.Available,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, driverResponse(driver))
}

// UpdateLocation handles PUT /v1/driver/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req LocationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	driver, err := h.driverService.UpdateLocation(c.Request.Context(), service.UpdateDriverLocationRequest{
		AccountID: middleware.CallerID(c),
		Location:  req.toDomain(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, driverResponse(driver))
}

// AvailableRides handles GET /v1/driver/rides/available?limit=N
func (h *DriverHandler) AvailableRides(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	rides, err := h.dispatchService.EligibleRides(c.Request.Context(), service.EligibleRidesRequest{
		AccountID: middleware.CallerID(c),
		Limit:     limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]AvailableRideResponse, len(rides))
	for i, r := range rides {
		response[i] = AvailableRideResponse{
			RideResponse:     rideResponse(r.Ride),
			PickupDistanceKm: r.PickupDistanceKm,
			DispatchRadiusKm: r.DispatchRadiusKm,
		}
	}
	respondJSON(c, http.StatusOK, response)
}

// ListRides handles GET /v1/driver/rides
func (h *DriverHandler) ListRides(c *gin.Context) {
	rides, err := h.driverService.ListRides(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponses(rides))
}

// AcceptRide handles PUT /v1/driver/rides/:id/accept
func (h *DriverHandler) AcceptRide(c *gin.Context) {
	ride, err := h.dispatchService.AcceptRide(c.Request.Context(), service.AcceptRideRequest{
		AccountID: middleware.CallerID(c),
		RideID:    c.Param("id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}
