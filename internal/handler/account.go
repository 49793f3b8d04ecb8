package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/middleware"
	"ridehail/internal/service"
)

// AccountHandler handles registration, login and the caller's account.
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// RegisterRequest is the HTTP request body for registration.
type RegisterRequest struct {
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Password      string       `json:"password"`
	Phone         string       `json:"phone"`
	Role          string       `json:"role,omitempty"` // rider (default) or driver
	Vehicle       *VehicleBody `json:"vehicle,omitempty"`
	LicenseNumber string       `json:"license_number,omitempty"`
}

// LoginRequest is the HTTP request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
	Driver  *DriverResponse `json:"driver,omitempty"`
}

// Register handles POST /v1/auth/register
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	in := service.RegisterRequest{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Phone:         req.Phone,
		Role:          domain.Role(req.Role),
		LicenseNumber: req.LicenseNumber,
	}
	if req.Vehicle != nil {
		in.Vehicle = req.Vehicle.toDomain()
	}

	result, err := h.accountService.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, AuthResponse{
		Token:   result.Token,
		Account: accountResponse(result.Account),
		Driver:  driverResponse(result.Driver),
	})
}

// Login handles POST /v1/auth/login
func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.accountService.Login(c.Request.Context(), service.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AuthResponse{Token: result.Token, Account: accountResponse(result.Account)})
}

// Me handles GET /v1/auth/me
func (h *AccountHandler) Me(c *gin.Context) {
	account, err := h.accountService.Me(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, accountResponse(account))
}
