// Package memory is an in-process implementation of the repository
// contracts. It backs service and handler tests and enforces the same
// conditional-write and uniqueness rules as the PostgreSQL schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// Store holds every entity behind one lock.
type Store struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	rides    map[string]*domain.Ride
	drivers  map[string]*domain.Driver
	accounts map[string]*domain.Account

	// Counters for verification
	ClaimCallCount  int32
	UpdateCallCount int32
	ExpireCallCount int32
	TxCallCount     int32
	RollbackCount   int32

	// Error injection
	ClaimError            error
	UpdateError           error
	MarkUnavailableError  error
	RecordCompletionError error
	ApplyRatingError      error
	CreateDriverError     error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		rides:    make(map[string]*domain.Ride),
		drivers:  make(map[string]*domain.Driver),
		accounts: make(map[string]*domain.Account),
	}
}

// Rides returns the ride repository view of the store.
func (s *Store) Rides() *RideRepository { return &RideRepository{s: s} }

// Drivers returns the driver repository view of the store.
func (s *Store) Drivers() *DriverRepository { return &DriverRepository{s: s} }

// Accounts returns the account repository view of the store.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// WithinTx runs fn with exclusive access to transactional writes. Any change
// fn made is discarded when it returns an error. Writes made outside a
// transaction while fn runs are discarded as well on rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, st repository.Stores) error) error {
	atomic.AddInt32(&s.TxCallCount, 1)
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	err := fn(ctx, repository.Stores{
		Rides:    s.Rides(),
		Drivers:  s.Drivers(),
		Accounts: s.Accounts(),
	})
	if err != nil {
		atomic.AddInt32(&s.RollbackCount, 1)
		s.restore(snap)
	}
	return err
}

type snapshot struct {
	rides    map[string]*domain.Ride
	drivers  map[string]*domain.Driver
	accounts map[string]*domain.Account
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		rides:    make(map[string]*domain.Ride, len(s.rides)),
		drivers:  make(map[string]*domain.Driver, len(s.drivers)),
		accounts: make(map[string]*domain.Account, len(s.accounts)),
	}
	for id, r := range s.rides {
		snap.rides[id] = copyRide(r)
	}
	for id, d := range s.drivers {
		snap.drivers[id] = copyDriver(d)
	}
	for id, a := range s.accounts {
		acc := *a
		snap.accounts[id] = &acc
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides = snap.rides
	s.drivers = snap.drivers
	s.accounts = snap.accounts
}

// AddRide seeds a ride without uniqueness checks.
func (s *Store) AddRide(ride *domain.Ride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ride.Version == 0 {
		ride.Version = 1
	}
	s.rides[ride.ID] = copyRide(ride)
}

// AddDriver seeds a driver without uniqueness checks.
func (s *Store) AddDriver(driver *domain.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[driver.ID] = copyDriver(driver)
}

// AddAccount seeds an account without uniqueness checks.
func (s *Store) AddAccount(account *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := *account
	s.accounts[acc.ID] = &acc
}

// GetRide returns a copy of a ride for test assertions, or nil.
func (s *Store) GetRide(id string) *domain.Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rides[id]; ok {
		return copyRide(r)
	}
	return nil
}

// GetDriver returns a copy of a driver for test assertions, or nil.
func (s *Store) GetDriver(id string) *domain.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.drivers[id]; ok {
		return copyDriver(d)
	}
	return nil
}

func copyRide(r *domain.Ride) *domain.Ride {
	c := *r
	if r.RiderLocation != nil {
		loc := *r.RiderLocation
		c.RiderLocation = &loc
	}
	return &c
}

func copyDriver(d *domain.Driver) *domain.Driver {
	c := *d
	c.Vehicle.Categories = append([]domain.Category(nil), d.Vehicle.Categories...)
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	return &c
}

// ──────────────────────────────────────────────
// RIDES
// ──────────────────────────────────────────────

// RideRepository implements repository.RideRepository.
type RideRepository struct {
	s *Store
}

func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.rides[ride.ID]; ok {
		return &repository.DuplicateError{Field: "id"}
	}
	if ride.IsActive() && r.s.riderHasActive(ride.RiderID) {
		return &repository.DuplicateError{Field: "rider"}
	}
	if ride.Version == 0 {
		ride.Version = 1
	}
	r.s.rides[ride.ID] = copyRide(ride)
	return nil
}

func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ride, ok := r.s.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyRide(ride), nil
}

func (r *RideRepository) ListByRider(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	return r.list(func(ride *domain.Ride) bool { return ride.RiderID == riderID }, newestFirst), nil
}

func (r *RideRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	return r.list(func(ride *domain.Ride) bool { return ride.DriverID == driverID }, newestFirst), nil
}

func (r *RideRepository) ListClaimable(ctx context.Context, categories []domain.Category, now time.Time) ([]*domain.Ride, error) {
	wanted := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	return r.list(func(ride *domain.Ride) bool {
		return ride.IsClaimable(now) && wanted[ride.Category]
	}, oldestFirst), nil
}

func (r *RideRepository) HasActiveByRider(ctx context.Context, riderID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.riderHasActive(riderID), nil
}

func (r *RideRepository) HasActiveByDriver(ctx context.Context, driverID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.driverHasActive(driverID, ""), nil
}

func (r *RideRepository) ExpireRequested(ctx context.Context, now time.Time, reason string) (int64, error) {
	atomic.AddInt32(&r.s.ExpireCallCount, 1)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, ride := range r.s.rides {
		if ride.Status != domain.RideStatusRequested || ride.DriverID != "" {
			continue
		}
		if ride.RequestExpiresAt.After(now) {
			continue
		}
		ride.Status = domain.RideStatusCancelled
		ride.CancelledAt = now
		ride.CancelReason = reason
		ride.RequestExpiresAt = time.Time{}
		ride.Version++
		n++
	}
	return n, nil
}

func (r *RideRepository) Claim(ctx context.Context, p repository.ClaimParams) error {
	atomic.AddInt32(&r.s.ClaimCallCount, 1)
	if r.s.ClaimError != nil {
		return r.s.ClaimError
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ride, ok := r.s.rides[p.RideID]
	if !ok || !ride.IsClaimable(p.Now) {
		return repository.ErrConflict
	}
	if r.s.driverHasActive(p.DriverID, "") {
		return &repository.DuplicateError{Field: "driver"}
	}

	ride.DriverID = p.DriverID
	ride.Status = domain.RideStatusAccepted
	ride.AcceptedAt = p.Now
	ride.PickupCode = p.PickupCode
	ride.PickupCodeIssuedAt = p.Now
	ride.PickupVerifiedAt = time.Time{}
	ride.RequestExpiresAt = time.Time{}
	ride.Version++
	return nil
}

func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&r.s.UpdateCallCount, 1)
	if r.s.UpdateError != nil {
		return r.s.UpdateError
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.rides[ride.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != ride.Version {
		return repository.ErrConflict
	}
	if ride.IsActive() && ride.DriverID != "" && ride.Status != domain.RideStatusRequested &&
		r.s.driverHasActive(ride.DriverID, ride.ID) {
		return &repository.DuplicateError{Field: "driver"}
	}

	ride.Version++
	r.s.rides[ride.ID] = copyRide(ride)
	return nil
}

func (s *Store) riderHasActive(riderID string) bool {
	for _, ride := range s.rides {
		if ride.RiderID == riderID && ride.IsActive() {
			return true
		}
	}
	return false
}

func (s *Store) driverHasActive(driverID, exceptRideID string) bool {
	for _, ride := range s.rides {
		if ride.ID == exceptRideID || ride.DriverID != driverID {
			continue
		}
		if ride.Status == domain.RideStatusAccepted || ride.Status == domain.RideStatusInProgress {
			return true
		}
	}
	return false
}

func (r *RideRepository) list(match func(*domain.Ride) bool, less func(a, b *domain.Ride) bool) []*domain.Ride {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Ride, 0)
	for _, ride := range r.s.rides {
		if match(ride) {
			result = append(result, copyRide(ride))
		}
	}
	sort.Slice(result, func(i, j int) bool { return less(result[i], result[j]) })
	return result
}

func newestFirst(a, b *domain.Ride) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func oldestFirst(a, b *domain.Ride) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// ──────────────────────────────────────────────
// DRIVERS
// ──────────────────────────────────────────────

// DriverRepository implements repository.DriverRepository.
type DriverRepository struct {
	s *Store
}

func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	if r.s.CreateDriverError != nil {
		return r.s.CreateDriverError
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, d := range r.s.drivers {
		if d.AccountID == driver.AccountID {
			return &repository.DuplicateError{Field: "account"}
		}
		if d.LicenseNumber == driver.LicenseNumber {
			return &repository.DuplicateError{Field: "license_number"}
		}
	}
	r.s.drivers[driver.ID] = copyDriver(driver)
	return nil
}

func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyDriver(d), nil
}

func (r *DriverRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, d := range r.s.drivers {
		if d.AccountID == accountID {
			return copyDriver(d), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *DriverRepository) UpdateProfile(ctx context.Context, driver *domain.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.drivers[driver.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, d := range r.s.drivers {
		if id != driver.ID && d.LicenseNumber == driver.LicenseNumber {
			return &repository.DuplicateError{Field: "license_number"}
		}
	}
	stored.Vehicle = driver.Vehicle
	stored.Vehicle.Categories = append([]domain.Category(nil), driver.Vehicle.Categories...)
	stored.LicenseNumber = driver.LicenseNumber
	return nil
}

func (r *DriverRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	return r.mutate(id, func(d *domain.Driver) error {
		d.Available = available
		return nil
	})
}

func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, loc domain.Location) error {
	return r.mutate(id, func(d *domain.Driver) error {
		d.Location = &loc
		return nil
	})
}

func (r *DriverRepository) MarkUnavailable(ctx context.Context, id string) error {
	if r.s.MarkUnavailableError != nil {
		return r.s.MarkUnavailableError
	}
	return r.mutate(id, func(d *domain.Driver) error {
		if !d.Available {
			return repository.ErrConflict
		}
		d.Available = false
		return nil
	})
}

func (r *DriverRepository) RecordCompletion(ctx context.Context, id string, fare int64) error {
	if r.s.RecordCompletionError != nil {
		return r.s.RecordCompletionError
	}
	return r.mutate(id, func(d *domain.Driver) error {
		d.Available = true
		d.TotalRides++
		d.Earnings += fare
		return nil
	})
}

func (r *DriverRepository) ApplyRating(ctx context.Context, id string, score int) (domain.DriverRating, error) {
	if r.s.ApplyRatingError != nil {
		return domain.DriverRating{}, r.s.ApplyRatingError
	}
	var rating domain.DriverRating
	err := r.mutate(id, func(d *domain.Driver) error {
		d.Rating = d.Rating.Add(score)
		rating = d.Rating
		return nil
	})
	return rating, err
}

func (r *DriverRepository) mutate(id string, fn func(d *domain.Driver) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	return fn(d)
}

// ──────────────────────────────────────────────
// ACCOUNTS
// ──────────────────────────────────────────────

// AccountRepository implements repository.AccountRepository.
type AccountRepository struct {
	s *Store
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account.Email = strings.ToLower(account.Email)
	for _, a := range r.s.accounts {
		if a.Email == account.Email {
			return &repository.DuplicateError{Field: "email"}
		}
		if a.Phone == account.Phone {
			return &repository.DuplicateError{Field: "phone"}
		}
	}
	acc := *account
	r.s.accounts[acc.ID] = &acc
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	acc := *a
	return &acc, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, a := range r.s.accounts {
		if a.Email == email {
			acc := *a
			return &acc, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Ensure the store satisfies the repository contracts.
var (
	_ repository.RideRepository    = (*RideRepository)(nil)
	_ repository.DriverRepository  = (*DriverRepository)(nil)
	_ repository.AccountRepository = (*AccountRepository)(nil)
	_ repository.Transactor        = (*Store)(nil)
)
