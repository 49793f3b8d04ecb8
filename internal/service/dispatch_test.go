package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/events"
	"ridehail/internal/repository"
)

func TestDispatchRadiusKm(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cases := []struct {
		addOn int64
		want  float64
	}{
		{0, 8},
		{79, 8},
		{80, 9},
		{400, 13},
		{960, 20},
		{5000, 20},
	}
	for _, tc := range cases {
		if got := env.dispatch.DispatchRadiusKm(tc.addOn); got != tc.want {
			t.Errorf("DispatchRadiusKm(%d) = %v, want %v", tc.addOn, got, tc.want)
		}
	}
}

func TestDispatchRadiusKm_CustomConfig(t *testing.T) {
	t.Parallel()

	s := NewDispatchService(nil, nil, nil, nil, nil, nil, nil, nil,
		DispatchConfig{BaseRadiusKm: 3, MaxRadiusKm: 5, AddOnPerKm: 10})
	if got := s.DispatchRadiusKm(15); got != 4 {
		t.Errorf("expected 4, got %v", got)
	}
	if got := s.DispatchRadiusKm(100); got != 5 {
		t.Errorf("expected cap 5, got %v", got)
	}
}

func TestEligibleRides_FiltersAndSorts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	driver := env.addDriver("d1", &base, domain.CategoryEconomy, domain.CategoryComfort)

	env.addRequestedRide("near", "r1", north(0.01, "A"), domain.CategoryEconomy, 0)
	env.addRequestedRide("mid-cheap", "r2", north(0.03, "B"), domain.CategoryEconomy, 0)
	env.addRequestedRide("mid-rich", "r3", north(0.03, "B"), domain.CategoryComfort, 50)
	env.addRequestedRide("far", "r4", north(0.1, "C"), domain.CategoryEconomy, 0)
	env.addRequestedRide("far-rich", "r5", north(0.1, "C"), domain.CategoryEconomy, 320)
	env.addRequestedRide("premium", "r6", north(0.01, "A"), domain.CategoryPremium, 0)

	env.clock.Advance(-time.Minute)
	env.addRequestedRide("stale", "r7", north(0.01, "A"), domain.CategoryEconomy, 0)
	env.clock.Advance(time.Minute + 4*time.Minute + 30*time.Second)
	// "stale" expires 30s before the other rides.

	got, err := env.dispatch.EligibleRides(ctx, EligibleRidesRequest{AccountID: driver.AccountID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"near", "mid-rich", "mid-cheap", "far-rich"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rides, got %d: %v", len(want), len(got), rideIDs(got))
	}
	for i, id := range want {
		if got[i].Ride.ID != id {
			t.Errorf("position %d: expected %s, got %s (order %v)", i, id, got[i].Ride.ID, rideIDs(got))
		}
		if got[i].PickupDistanceKm == nil {
			t.Errorf("%s: expected a measured distance", id)
		}
		if got[i].Ride.PickupCode != "" {
			t.Errorf("%s: pickup code must be stripped", id)
		}
	}
	if got[3].DispatchRadiusKm != 12 {
		t.Errorf("expected widened radius 12 for far-rich, got %v", got[3].DispatchRadiusKm)
	}

	if stale := env.store.GetRide("stale"); stale.Status != domain.RideStatusCancelled || stale.CancelReason != ExpiryReason {
		t.Errorf("expected stale ride expired by the sweep, got %s %q", stale.Status, stale.CancelReason)
	}
}

func TestEligibleRides_DriverWithoutLocationSeesEverything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	driver := env.addDriver("d1", nil)

	env.addRequestedRide("cheap", "r1", north(0.01, "A"), domain.CategoryEconomy, 0)
	env.addRequestedRide("far-rich", "r2", north(0.5, "Far"), domain.CategoryEconomy, 100)

	got, err := env.dispatch.EligibleRides(ctx, EligibleRidesRequest{AccountID: driver.AccountID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(got))
	}
	// Equal (unknown) distance, so the higher fare comes first.
	if got[0].Ride.ID != "far-rich" {
		t.Errorf("expected far-rich first, got %v", rideIDs(got))
	}
	for _, e := range got {
		if e.PickupDistanceKm != nil {
			t.Errorf("%s: expected no distance without a driver location", e.Ride.ID)
		}
	}
}

func TestEligibleRides_Limit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	driver := env.addDriver("d1", &base)
	env.addRequestedRide("a", "r1", north(0.01, "A"), domain.CategoryEconomy, 0)
	env.addRequestedRide("b", "r2", north(0.02, "B"), domain.CategoryEconomy, 0)
	env.addRequestedRide("c", "r3", north(0.03, "C"), domain.CategoryEconomy, 0)

	got, err := env.dispatch.EligibleRides(context.Background(), EligibleRidesRequest{AccountID: driver.AccountID, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Ride.ID != "a" || got[1].Ride.ID != "b" {
		t.Errorf("expected [a b], got %v", rideIDs(got))
	}
}

func TestEligibleRides_UnknownDriver(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addRequestedRide("stale", "rider-1", base, domain.CategoryEconomy, 0)
	env.clock.Advance(DefaultRequestTimeout)

	_, err := env.dispatch.EligibleRides(context.Background(), EligibleRidesRequest{AccountID: "nobody"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	// The sweep runs before the driver lookup.
	if r := env.store.GetRide("stale"); r.Status != domain.RideStatusCancelled || r.CancelReason != ExpiryReason {
		t.Errorf("expected stale request expired, got %s (%q)", r.Status, r.CancelReason)
	}
}

func TestAcceptRide_Success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	driver := env.addDriver("d1", &base)
	env.locations.UpdateLocation(ctx, driver.ID, base.Lat, base.Lng)
	env.addRequestedRide("ride-1", "rider-1", north(0.01, "A"), domain.CategoryEconomy, 0)
	env.clock.Advance(90 * time.Second)

	view, err := env.dispatch.AcceptRide(ctx, AcceptRideRequest{AccountID: driver.AccountID, RideID: "ride-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != domain.RideStatusAccepted || view.DriverID != "d1" {
		t.Errorf("unexpected view: status=%s driver=%s", view.Status, view.DriverID)
	}
	if view.PickupCode != "" {
		t.Error("driver view must not carry the pickup code")
	}

	stored := env.store.GetRide("ride-1")
	if stored.PickupCode != testPickupCode {
		t.Errorf("expected stored code %s, got %q", testPickupCode, stored.PickupCode)
	}
	if !stored.AcceptedAt.Equal(env.clock.Now()) || !stored.PickupCodeIssuedAt.Equal(env.clock.Now()) {
		t.Errorf("expected accepted and issue times at now, got %v %v", stored.AcceptedAt, stored.PickupCodeIssuedAt)
	}
	if !stored.RequestExpiresAt.IsZero() {
		t.Errorf("expected deadline cleared, got %v", stored.RequestExpiresAt)
	}
	if stored.PickupVerified() {
		t.Error("expected no verification yet")
	}

	if env.store.GetDriver("d1").Available {
		t.Error("expected driver unavailable after accepting")
	}
	if env.locations.has("d1") {
		t.Error("expected driver removed from the location mirror")
	}
	if len(env.publisher.ofType(events.RideAccepted)) != 1 {
		t.Error("expected one ride.accepted event")
	}
}

func TestAcceptRide_ConcurrentDriversExactlyOneWins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	env.addRequestedRide("ride-1", "rider-1", north(0.01, "A"), domain.CategoryEconomy, 0)

	const n = 8
	drivers := make([]*domain.Driver, n)
	for i := range drivers {
		drivers[i] = env.addDriver(string(rune('a'+i)), &base)
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i, d := range drivers {
		wg.Add(1)
		go func(i int, d *domain.Driver) {
			defer wg.Done()
			<-start
			_, errs[i] = env.dispatch.AcceptRide(ctx, AcceptRideRequest{AccountID: d.AccountID, RideID: "ride-1"})
		}(i, d)
	}
	close(start)
	wg.Wait()

	var winner string
	for i, err := range errs {
		switch {
		case err == nil:
			if winner != "" {
				t.Fatalf("two drivers won: %s and %s", winner, drivers[i].ID)
			}
			winner = drivers[i].ID
		case errors.Is(err, ErrRideAlreadyClaimed):
		default:
			t.Errorf("driver %s: expected ErrRideAlreadyClaimed, got %v", drivers[i].ID, err)
		}
	}
	if winner == "" {
		t.Fatal("expected exactly one winner")
	}

	ride := env.store.GetRide("ride-1")
	if ride.DriverID != winner {
		t.Errorf("expected ride held by %s, got %s", winner, ride.DriverID)
	}
	for _, d := range drivers {
		available := env.store.GetDriver(d.ID).Available
		if d.ID == winner && available {
			t.Error("winner must be unavailable")
		}
		if d.ID != winner && !available {
			t.Errorf("loser %s must stay available", d.ID)
		}
	}
}

func TestAcceptRide_Preconditions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		setup   func(env *testEnv) (accountID, rideID string)
		wantErr error
	}{
		{
			name: "driver unavailable",
			setup: func(env *testEnv) (string, string) {
				d := env.addDriver("d1", &base)
				env.store.Drivers().SetAvailability(context.Background(), d.ID, false)
				env.addRequestedRide("ride", "r1", north(0.01, "A"), domain.CategoryEconomy, 0)
				return d.AccountID, "ride"
			},
			wantErr: ErrDriverUnavailable,
		},
		{
			name: "driver already holds a ride",
			setup: func(env *testEnv) (string, string) {
				d := env.addDriver("d1", &base)
				env.store.AddRide(&domain.Ride{ID: "held", RiderID: "r0", DriverID: d.ID, Status: domain.RideStatusInProgress})
				env.addRequestedRide("ride", "r1", north(0.01, "A"), domain.CategoryEconomy, 0)
				return d.AccountID, "ride"
			},
			wantErr: ErrDriverHasActiveRide,
		},
		{
			name: "category not served",
			setup: func(env *testEnv) (string, string) {
				d := env.addDriver("d1", &base)
				env.addRequestedRide("ride", "r1", north(0.01, "A"), domain.CategoryPremium, 0)
				return d.AccountID, "ride"
			},
			wantErr: ErrCategoryNotServed,
		},
		{
			name: "outside dispatch radius",
			setup: func(env *testEnv) (string, string) {
				d := env.addDriver("d1", &base)
				env.addRequestedRide("ride", "r1", north(0.1, "Far"), domain.CategoryEconomy, 0)
				return d.AccountID, "ride"
			},
			wantErr: ErrOutsideDispatchRadius,
		},
		{
			name: "expired request",
			setup: func(env *testEnv) (string, string) {
				d := env.addDriver("d1", &base)
				env.addRequestedRide("ride", "r1", north(0.01, "A"), domain.CategoryEconomy, 0)
				env.clock.Advance(DefaultRequestTimeout)
				return d.AccountID, "ride"
			},
			wantErr: ErrRideExpired,
		},
		{
			name: "cancelled by rider",
			setup: func(env *testEnv) (string, string) {
				d := env.addDriver("d1", &base)
				env.store.AddRide(&domain.Ride{ID: "ride", RiderID: "r1", Status: domain.RideStatusCancelled, CancelReason: DefaultCancelReason})
				return d.AccountID, "ride"
			},
			wantErr: ErrRideNotAvailable,
		},
		{
			name: "already claimed",
			setup: func(env *testEnv) (string, string) {
				d := env.addDriver("d1", &base)
				env.store.AddRide(&domain.Ride{ID: "ride", RiderID: "r1", DriverID: "other", Status: domain.RideStatusAccepted})
				return d.AccountID, "ride"
			},
			wantErr: ErrRideAlreadyClaimed,
		},
		{
			name: "unknown ride",
			setup: func(env *testEnv) (string, string) {
				return env.addDriver("d1", &base).AccountID, "missing"
			},
			wantErr: repository.ErrNotFound,
		},
		{
			name: "no driver profile",
			setup: func(env *testEnv) (string, string) {
				env.addRequestedRide("ride", "r1", north(0.01, "A"), domain.CategoryEconomy, 0)
				return "acc-nobody", "ride"
			},
			wantErr: repository.ErrNotFound,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			accountID, rideID := tc.setup(env)

			_, err := env.dispatch.AcceptRide(context.Background(), AcceptRideRequest{AccountID: accountID, RideID: rideID})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if env.store.ClaimCallCount != 0 {
				t.Errorf("expected no claim attempt, got %d", env.store.ClaimCallCount)
			}
		})
	}
}

func TestAcceptRide_NoPartialStateWhenDriverFlipFails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	driver := env.addDriver("d1", &base)
	env.addRequestedRide("ride-1", "rider-1", north(0.01, "A"), domain.CategoryEconomy, 0)
	env.store.MarkUnavailableError = errors.New("database unavailable")

	_, err := env.dispatch.AcceptRide(context.Background(), AcceptRideRequest{AccountID: driver.AccountID, RideID: "ride-1"})
	if err == nil {
		t.Fatal("expected error")
	}

	ride := env.store.GetRide("ride-1")
	if ride.Status != domain.RideStatusRequested || ride.DriverID != "" || ride.PickupCode != "" {
		t.Errorf("expected claim rolled back, got status=%s driver=%q", ride.Status, ride.DriverID)
	}
	if !env.store.GetDriver("d1").Available {
		t.Error("expected driver still available")
	}
	if env.store.RollbackCount != 1 {
		t.Errorf("expected one rollback, got %d", env.store.RollbackCount)
	}
}

func TestAcceptRide_RequiresIDs(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	if _, err := env.dispatch.AcceptRide(context.Background(), AcceptRideRequest{RideID: "x"}); !errors.Is(err, ErrInvalidAccountID) {
		t.Errorf("expected ErrInvalidAccountID, got %v", err)
	}
	if _, err := env.dispatch.AcceptRide(context.Background(), AcceptRideRequest{AccountID: "x"}); !errors.Is(err, ErrInvalidRideID) {
		t.Errorf("expected ErrInvalidRideID, got %v", err)
	}
}

func TestGeneratePickupCode(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		code, err := generatePickupCode()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !pickupCodePattern.MatchString(code) {
			t.Fatalf("expected 4 digits, got %q", code)
		}
	}
}

func rideIDs(entries []EligibleRide) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Ride.ID
	}
	return ids
}
