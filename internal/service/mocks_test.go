package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ridehail/internal/domain"
	"ridehail/internal/events"
	"ridehail/internal/geo"
	"ridehail/internal/pricing"
	"ridehail/internal/redis"
	"ridehail/internal/repository/memory"
)

// ──────────────────────────────────────────────
// CLOCK
// ──────────────────────────────────────────────

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

type mockLocationStore struct {
	mu        sync.Mutex
	locations map[string]geo.Point
	err       error
}

func newMockLocationStore() *mockLocationStore {
	return &mockLocationStore{locations: make(map[string]geo.Point)}
}

func (m *mockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = geo.Point{Lat: lat, Lng: lng}
	return nil
}

func (m *mockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.NearbyDriver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var result []redis.NearbyDriver
	for id, p := range m.locations {
		d, ok := geo.DistanceKm(geo.Point{Lat: lat, Lng: lng}, p)
		if ok && d <= radiusKm {
			result = append(result, redis.NearbyDriver{DriverID: id, Lat: p.Lat, Lng: p.Lng, DistanceKm: d})
		}
	}
	return result, nil
}

func (m *mockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

func (m *mockLocationStore) has(driverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locations[driverID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

type mockLockStore struct {
	mu           sync.Mutex
	held         map[string]string
	acquireCount int
	releaseCount int
}

func newMockLockStore() *mockLockStore {
	return &mockLockStore{held: make(map[string]string)}
}

func (m *mockLockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquireCount++
	if _, ok := m.held[name]; ok {
		return "", false, nil
	}
	token := "token-" + name
	m.held[name] = token
	return token, true, nil
}

func (m *mockLockStore) Release(ctx context.Context, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCount++
	if m.held[name] == token {
		delete(m.held, name)
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER CACHE
// ──────────────────────────────────────────────

type mockDriverCache struct {
	mu          sync.Mutex
	drivers     map[string]*redis.CachedDriver
	getCount    int
	hitCount    int
	invalidated []string
}

func newMockDriverCache() *mockDriverCache {
	return &mockDriverCache{drivers: make(map[string]*redis.CachedDriver)}
}

func (m *mockDriverCache) GetDriver(ctx context.Context, accountID string) (*redis.CachedDriver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCount++
	d, ok := m.drivers[accountID]
	if !ok {
		return nil, nil
	}
	m.hitCount++
	c := *d
	return &c, nil
}

func (m *mockDriverCache) SetDriver(ctx context.Context, driver *redis.CachedDriver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *driver
	m.drivers[driver.AccountID] = &c
	return nil
}

func (m *mockDriverCache) InvalidateDriver(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, accountID)
	m.invalidated = append(m.invalidated, accountID)
	return nil
}

// ──────────────────────────────────────────────
// RECORDING PUBLISHER / ISSUER
// ──────────────────────────────────────────────

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(t events.Type) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeIssuer struct{}

func (fakeIssuer) Issue(accountID string, role domain.Role) (string, error) {
	return "token-" + accountID + "-" + string(role), nil
}

// ──────────────────────────────────────────────
// TEST ENVIRONMENT
// ──────────────────────────────────────────────

const testPickupCode = "4821"

// base is the reference point for test coordinates. 0.01 degrees of latitude
// is about 1.11 km.
var base = domain.Location{Address: "MG Road", Lat: 12.9716, Lng: 77.5946}

func north(deg float64, address string) domain.Location {
	return domain.Location{Address: address, Lat: base.Lat + deg, Lng: base.Lng}
}

type testEnv struct {
	store     *memory.Store
	clock     *testClock
	engine    *pricing.Engine
	publisher *recordingPublisher
	locations *mockLocationStore
	cache     *mockDriverCache

	lifecycle *LifecycleService
	dispatch  *DispatchService
	pickup    *PickupService
	trips     *TripService
	rides     *RideService
	ratings   *RatingService
	drivers   *DriverService
	accounts  *AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     memory.NewStore(),
		clock:     &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		engine:    pricing.NewEngine(pricing.DefaultParams()),
		publisher: &recordingPublisher{},
		locations: newMockLocationStore(),
		cache:     newMockDriverCache(),
	}
	now := env.clock.Now
	store := env.store

	notifications := NewNotificationService(nil, env.publisher)
	notifications.now = now

	env.lifecycle = NewLifecycleService(store.Rides(), notifications, nil, 0)
	env.lifecycle.now = now

	env.dispatch = NewDispatchService(store, store.Rides(), store.Drivers(), env.lifecycle, notifications,
		env.locations, env.cache, nil, DispatchConfig{})
	env.dispatch.now = now
	env.dispatch.newCode = func() (string, error) { return testPickupCode, nil }

	env.pickup = NewPickupService(store.Rides(), store.Drivers(), nil)
	env.pickup.now = now

	env.trips = NewTripService(store, store.Drivers(), notifications, env.locations, env.cache, nil)
	env.trips.now = now

	env.rides = NewRideService(store, store.Rides(), store.Drivers(), env.engine, env.lifecycle, env.dispatch,
		notifications, env.locations, env.cache, nil)
	env.rides.now = now

	env.ratings = NewRatingService(store, notifications, env.cache, nil)

	env.drivers = NewDriverService(store.Drivers(), store.Rides(), env.locations, env.cache, nil)

	env.accounts = NewAccountService(store, store.Accounts(), fakeIssuer{}, nil)
	env.accounts.hashCost = bcrypt.MinCost
	env.accounts.now = now

	return env
}

// addDriver seeds an available driver whose account ID is "acc-" + id.
func (e *testEnv) addDriver(id string, loc *domain.Location, categories ...domain.Category) *domain.Driver {
	if len(categories) == 0 {
		categories = []domain.Category{domain.CategoryEconomy}
	}
	d := &domain.Driver{
		ID:        id,
		AccountID: "acc-" + id,
		Vehicle: domain.Vehicle{
			Make: "Maruti", Model: "Dzire", Year: 2021, LicensePlate: "KA01" + id, Color: "White",
			Categories: categories,
		},
		LicenseNumber: "LIC-" + id,
		Available:     true,
		Location:      loc,
		CreatedAt:     e.clock.Now(),
	}
	e.store.AddDriver(d)
	return d
}

// addRequestedRide seeds an open request priced for 5 km and 15 minutes.
func (e *testEnv) addRequestedRide(id, riderID string, pickup domain.Location, category domain.Category, addOn float64) *domain.Ride {
	now := e.clock.Now()
	r := &domain.Ride{
		ID:               id,
		RiderID:          riderID,
		Pickup:           pickup,
		Dropoff:          north(0.2, "Airport"),
		Category:         category,
		PaymentMethod:    domain.PaymentMethodCash,
		Status:           domain.RideStatusRequested,
		RequestExpiresAt: e.lifecycle.ExpiryDeadline(now),
		CreatedAt:        now,
	}
	r.Price(e.engine, 5, 15, addOn)
	e.store.AddRide(r)
	return r
}

// acceptedRide seeds a driver and a ride that driver accepted through the
// dispatch service.
func (e *testEnv) acceptedRide(t *testing.T, rideID, riderID, driverID string) (*domain.Ride, *domain.Driver) {
	t.Helper()
	driver := e.addDriver(driverID, &base)
	e.addRequestedRide(rideID, riderID, north(0.01, "Church Street"), domain.CategoryEconomy, 0)
	if _, err := e.dispatch.AcceptRide(context.Background(), AcceptRideRequest{AccountID: driver.AccountID, RideID: rideID}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	return e.store.GetRide(rideID), driver
}

// startedRide returns a ride that was accepted, verified and started.
func (e *testEnv) startedRide(t *testing.T, rideID, riderID, driverID string) (*domain.Ride, *domain.Driver) {
	t.Helper()
	ctx := context.Background()
	_, driver := e.acceptedRide(t, rideID, riderID, driverID)
	if _, err := e.pickup.VerifyPickupCode(ctx, VerifyPickupRequest{AccountID: driver.AccountID, RideID: rideID, Code: testPickupCode}); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := e.trips.AdvanceStatus(ctx, AdvanceStatusRequest{AccountID: driver.AccountID, RideID: rideID, Status: domain.RideStatusInProgress}); err != nil {
		t.Fatalf("start: %v", err)
	}
	return e.store.GetRide(rideID), driver
}

// completedRide returns a ride that went all the way to completed.
func (e *testEnv) completedRide(t *testing.T, rideID, riderID, driverID string) (*domain.Ride, *domain.Driver) {
	t.Helper()
	_, driver := e.startedRide(t, rideID, riderID, driverID)
	if _, err := e.trips.AdvanceStatus(context.Background(), AdvanceStatusRequest{AccountID: driver.AccountID, RideID: rideID, Status: domain.RideStatusCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	return e.store.GetRide(rideID), e.store.GetDriver(driver.ID)
}
