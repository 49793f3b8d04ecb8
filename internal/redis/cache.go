package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// DriverCacheTTL bounds how stale a cached driver profile may be.
const DriverCacheTTL = 30 * time.Second

const driverCachePrefix = "cache:driver:account:"

// CachedDriver represents a cached driver profile, keyed by owning account.
type CachedDriver struct {
	ID            string   `json:"id"`
	AccountID     string   `json:"account_id"`
	Make          string   `json:"make"`
	Model         string   `json:"model"`
	Year          int      `json:"year"`
	LicensePlate  string   `json:"license_plate"`
	Color         string   `json:"color"`
	Categories    []string `json:"categories"`
	LicenseNumber string   `json:"license_number"`
	Available     bool     `json:"available"`
	HasLocation   bool     `json:"has_location"`
	Address       string   `json:"address,omitempty"`
	Lat           float64  `json:"lat,omitempty"`
	Lng           float64  `json:"lng,omitempty"`
	RatingAverage float64  `json:"rating_average"`
	RatingCount   int      `json:"rating_count"`
	TotalRides    int      `json:"total_rides"`
	Earnings      int64    `json:"earnings"`
	CreatedAt     int64    `json:"created_at"`
}

// GetDriver retrieves a driver from cache. A miss returns (nil, nil).
func (s *CacheStore) GetDriver(ctx context.Context, accountID string) (*CachedDriver, error) {
	data, err := s.client.Get(ctx, driverCachePrefix+accountID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var driver CachedDriver
	if err := json.Unmarshal(data, &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// SetDriver stores a driver in cache.
func (s *CacheStore) SetDriver(ctx context.Context, driver *CachedDriver) error {
	data, err := json.Marshal(driver)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, driverCachePrefix+driver.AccountID, data, DriverCacheTTL).Err()
}

// InvalidateDriver removes a driver from cache.
func (s *CacheStore) InvalidateDriver(ctx context.Context, accountID string) error {
	return s.client.Del(ctx, driverCachePrefix+accountID).Err()
}
