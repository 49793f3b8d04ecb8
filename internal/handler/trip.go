package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/middleware"
	"ridehail/internal/service"
)

// TripHandler handles pickup verification and trip progress.
type TripHandler struct {
	pickupService *service.PickupService
	tripService   *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(pickupService *service.PickupService, tripService *service.TripService) *TripHandler {
	return &TripHandler{pickupService: pickupService, tripService: tripService}
}

// VerifyPickupRequest is the HTTP request body for pickup verification.
type VerifyPickupRequest struct {
	Code string `json:"code"`
}

// UpdateStatusRequest is the HTTP request body for starting or completing a trip.
type UpdateStatusRequest struct {
	Status string `json:"status"` // in_progress or completed
}

// VerifyPickup handles PUT /v1/driver/rides/:id/verify-pickup
func (h *TripHandler) VerifyPickup(c *gin.Context) {
	var req VerifyPickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.pickupService.VerifyPickupCode(c.Request.Context(), service.VerifyPickupRequest{
		AccountID: middleware.CallerID(c),
		RideID:    c.Param("id"),
		Code:      req.Code,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}

// UpdateStatus handles PUT /v1/driver/rides/:id/status
func (h *TripHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ride, err := h.tripService.AdvanceStatus(c.Request.Context(), service.AdvanceStatusRequest{
		AccountID: middleware.CallerID(c),
		RideID:    c.Param("id"),
		Status:    domain.RideStatus(req.Status),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, rideResponse(ride))
}
