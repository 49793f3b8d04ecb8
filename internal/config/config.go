package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Auth     AuthConfig
	Dispatch DispatchConfig
	Pricing  PricingConfig
	Kafka    KafkaConfig
	Log      LogConfig
	Sweeper  SweeperConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Migrate  bool // apply the embedded schema at startup
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// DispatchConfig holds ride request and dispatch radius settings.
type DispatchConfig struct {
	RequestTimeout time.Duration
	BaseRadiusKm   float64
	MaxRadiusKm    float64
	AddOnPerKm     float64
}

// PricingConfig holds the fare engine tuning.
type PricingConfig struct {
	FreeFlowSpeedKmH float64
	MinBaselineMin   float64
	MinMultiplier    float64
	MaxMultiplier    float64
}

// KafkaConfig holds the ride event publisher settings. No brokers disables
// publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// SweeperConfig controls the background expiry sweep.
type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			CORSOrigins:  getListEnv("CORS_ALLOWED_ORIGINS", nil),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ridehail"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Migrate:  getBoolEnv("DB_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "ridehail"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getDurationEnv("JWT_TTL", 7*24*time.Hour),
		},
		Dispatch: DispatchConfig{
			RequestTimeout: getDurationEnv("RIDE_REQUEST_TIMEOUT", 5*time.Minute),
			BaseRadiusKm:   getFloatEnv("DISPATCH_BASE_RADIUS_KM", 8),
			MaxRadiusKm:    getFloatEnv("DISPATCH_MAX_RADIUS_KM", 20),
			AddOnPerKm:     getFloatEnv("DISPATCH_ADDON_PER_KM", 80),
		},
		Pricing: PricingConfig{
			FreeFlowSpeedKmH: getFloatEnv("PRICING_FREE_FLOW_SPEED_KMH", 35),
			MinBaselineMin:   getFloatEnv("PRICING_MIN_BASELINE_MIN", 3),
			MinMultiplier:    getFloatEnv("PRICING_MIN_MULTIPLIER", 0.9),
			MaxMultiplier:    getFloatEnv("PRICING_MAX_MULTIPLIER", 2.2),
		},
		Kafka: KafkaConfig{
			Brokers: getListEnv("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "ride-events"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Sweeper: SweeperConfig{
			Enabled:  getBoolEnv("EXPIRY_SWEEPER_ENABLED", false),
			Interval: getDurationEnv("EXPIRY_SWEEPER_INTERVAL", 30*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
