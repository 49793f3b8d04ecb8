package app

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridehail/internal/auth"
	"ridehail/internal/domain"
	"ridehail/internal/handler"
	"ridehail/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	AccountHandler   *handler.AccountHandler
	RideHandler      *handler.RideHandler
	DriverHandler    *handler.DriverHandler
	TripHandler      *handler.TripHandler
	Verifier         auth.TokenVerifier
	IdempotencyCache middleware.ResponseCache // nil disables replay
	NewRelicApp      *newrelic.Application
	CORSOrigins      []string
	Logger           *slog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware(deps.CORSOrigins))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authenticated := []gin.HandlerFunc{
		middleware.Auth(deps.Verifier),
		middleware.CallerAttributes(),
		middleware.IdempotencyMiddleware(deps.IdempotencyCache, deps.Logger),
	}
	riderOnly := middleware.RequireRole(domain.RoleRider)

	v1 := router.Group("/v1")
	{
		// Account routes.
		accounts := v1.Group("/auth")
		{
			accounts.POST("/register", deps.AccountHandler.Register)
			accounts.POST("/login", deps.AccountHandler.Login)
			accounts.GET("/me", append(authenticated, deps.AccountHandler.Me)...)
		}

		// Rider routes. A single ride is also readable by its driver.
		rides := v1.Group("/rides", authenticated...)
		{
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("/quote", riderOnly, deps.RideHandler.Quote)
			rides.POST("", riderOnly, deps.RideHandler.Book)
			rides.GET("/mine", riderOnly, deps.RideHandler.ListMine)
			rides.PUT("/:id/addon", riderOnly, deps.RideHandler.UpdateAddOn)
			rides.PUT("/:id/rider-location", riderOnly, deps.RideHandler.UpdateRiderLocation)
			rides.PUT("/:id/cancel", riderOnly, deps.RideHandler.CancelRide)
			rides.PUT("/:id/rate", riderOnly, deps.RideHandler.RateRide)
		}

		// Driver routes.
		driver := v1.Group("/driver", append(authenticated, middleware.RequireRole(domain.RoleDriver))...)
		{
			driver.GET("/profile", deps.DriverHandler.GetProfile)
			driver.PUT("/profile", deps.DriverHandler.UpdateProfile)
			driver.PUT("/availability", deps.DriverHandler.SetAvailability)
			driver.PUT("/location", deps.DriverHandler.UpdateLocation)
			driver.GET("/rides/available", deps.DriverHandler.AvailableRides)
			driver.GET("/rides", deps.DriverHandler.ListRides)
			driver.PUT("/rides/:id/accept", deps.DriverHandler.AcceptRide)
			driver.PUT("/rides/:id/verify-pickup", deps.TripHandler.VerifyPickup)
			driver.PUT("/rides/:id/status", deps.TripHandler.UpdateStatus)
		}
	}

	return router
}
