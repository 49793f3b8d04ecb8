package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"ridehail/internal/app"
	"ridehail/internal/auth"
	"ridehail/internal/config"
	"ridehail/internal/events"
	"ridehail/internal/logging"
	internalRedis "ridehail/internal/redis"
	"ridehail/internal/repository/postgres"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Auth.JWTSecret == "" {
		logger.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL", "migrated", cfg.Database.Migrate)

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafka.Close()
		publisher = kafka
		logger.Info("publishing ride events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	jwt := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	services := app.NewServices(cfg, app.Backends{
		Tx:        postgres.NewTransactor(db),
		Rides:     postgres.NewRideRepository(db),
		Drivers:   postgres.NewDriverRepository(db),
		Accounts:  postgres.NewAccountRepository(db),
		Locations: internalRedis.NewLocationStore(redisClient),
		Cache:     internalRedis.NewCacheStore(redisClient),
		Locks:     internalRedis.NewLockStore(redisClient),
		Publisher: publisher,
		Issuer:    jwt,
		Logger:    logger,
	})

	deps := services.RouterDeps()
	deps.Verifier = jwt
	deps.IdempotencyCache = redisClient
	deps.NewRelicApp = nrApp
	deps.CORSOrigins = cfg.Server.CORSOrigins
	deps.Logger = logger

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	runCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if cfg.Sweeper.Enabled {
		go services.Sweeper.Run(runCtx)
		logger.Info("expiry sweeper started", "interval", cfg.Sweeper.Interval)
	}

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stopBackground()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}
