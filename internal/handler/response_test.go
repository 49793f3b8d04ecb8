package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
	"ridehail/internal/service"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("load ride: %w", repository.ErrNotFound), http.StatusNotFound},
		{service.ErrInvalidRideID, http.StatusBadRequest},
		{service.ErrSamePickupDropoff, http.StatusBadRequest},
		{service.ErrAddOnDecrease, http.StatusBadRequest},
		{service.ErrTripEstimateOutOfRange, http.StatusBadRequest},
		{service.ErrInvalidPickupCodeFormat, http.StatusBadRequest},
		{service.ErrInvalidRating, http.StatusBadRequest},
		{service.ErrWeakPassword, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrNotRideOwner, http.StatusForbidden},
		{service.ErrDriverNotAssignedToRide, http.StatusForbidden},
		{service.ErrRideAccessDenied, http.StatusForbidden},
		{service.ErrRideAlreadyClaimed, http.StatusConflict},
		{service.ErrRideExpired, http.StatusConflict},
		{service.ErrPickupNotVerified, http.StatusConflict},
		{service.ErrRideAlreadyRated, http.StatusConflict},
		{service.ErrConcurrentUpdate, http.StatusConflict},
		{&domain.TransitionError{From: domain.RideStatusCompleted, To: domain.RideStatusInProgress}, http.StatusConflict},
		{&repository.DuplicateError{Field: "email"}, http.StatusConflict},
		{repository.ErrConflict, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestRespondError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{&repository.DuplicateError{Field: "phone"}, http.StatusConflict, `{"error":"phone already in use"}`},
		{service.ErrPickupNotVerified, http.StatusConflict, `{"error":"verify passenger before starting"}`},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)

		if w.Code != tc.wantCode || w.Body.String() != tc.wantBody {
			t.Errorf("%v: got %d %s, want %d %s", tc.err, w.Code, w.Body, tc.wantCode, tc.wantBody)
		}
	}
}
