package service

import (
	"context"
	"errors"
	"testing"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

func riderRegistration() RegisterRequest {
	return RegisterRequest{
		Name:     "Asha Rao",
		Email:    "Asha@Example.com",
		Password: "s3cret!",
		Phone:    "+91 98450-12345",
	}
}

func driverRegistration() RegisterRequest {
	req := riderRegistration()
	req.Email = "ravi@example.com"
	req.Phone = "9845067890"
	req.Role = domain.RoleDriver
	req.Vehicle = &domain.Vehicle{Make: "Toyota", Model: "Etios", Year: 2019, LicensePlate: "ka01ab1234", Color: "Silver"}
	req.LicenseNumber = "DL-0420110012345"
	return req
}

func TestRegister_Rider(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	result, err := env.accounts.Register(context.Background(), riderRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc := result.Account
	if acc.Role != domain.RoleRider || acc.Email != "asha@example.com" || acc.Phone != "9845012345" {
		t.Errorf("unexpected account: %+v", acc)
	}
	if acc.PasswordHash == "" || acc.PasswordHash == "s3cret!" {
		t.Error("expected a password hash")
	}
	if result.Token != "token-"+acc.ID+"-rider" || result.Driver != nil {
		t.Errorf("unexpected result: token=%q driver=%v", result.Token, result.Driver)
	}
}

func TestRegister_Driver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	result, err := env.accounts.Register(ctx, driverRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := result.Driver
	if d == nil || d.AccountID != result.Account.ID {
		t.Fatalf("expected a driver profile for the account, got %+v", d)
	}
	if !d.Available || d.Vehicle.LicensePlate != "KA01AB1234" {
		t.Errorf("unexpected driver: %+v", d)
	}
	if len(d.Vehicle.Categories) != 1 || d.Vehicle.Categories[0] != domain.CategoryEconomy {
		t.Errorf("expected default economy category, got %v", d.Vehicle.Categories)
	}
	if _, err := env.store.Drivers().GetByAccountID(ctx, result.Account.ID); err != nil {
		t.Errorf("expected driver persisted: %v", err)
	}
}

func TestRegister_DuplicateLicenseLeavesNoAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	if _, err := env.accounts.Register(ctx, driverRegistration()); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	req := driverRegistration()
	req.Email = "other@example.com"
	req.Phone = "9000000000"
	_, err := env.accounts.Register(ctx, req)

	var dup *repository.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "license_number" {
		t.Fatalf("expected duplicate license_number, got %v", err)
	}
	if _, err := env.store.Accounts().GetByEmail(ctx, "other@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected the account rolled back, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	if _, err := env.accounts.Register(ctx, riderRegistration()); err != nil {
		t.Fatalf("first registration: %v", err)
	}

	req := riderRegistration()
	req.Email = "ASHA@example.com"
	req.Phone = "9111111111"
	_, err := env.accounts.Register(ctx, req)

	var dup *repository.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if dup.Error() != "email already in use" {
		t.Errorf("unexpected message %q", dup.Error())
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(r *RegisterRequest)
		want   error
	}{
		{"missing name", func(r *RegisterRequest) { r.Name = " " }, ErrMissingName},
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }, ErrInvalidEmail},
		{"short password", func(r *RegisterRequest) { r.Password = "12345" }, ErrWeakPassword},
		{"short phone", func(r *RegisterRequest) { r.Phone = "12345" }, ErrInvalidPhone},
		{"unknown role", func(r *RegisterRequest) { r.Role = "admin" }, ErrInvalidRole},
		{"driver without vehicle", func(r *RegisterRequest) { r.Role = domain.RoleDriver }, ErrMissingVehicle},
		{"driver with bad category", func(r *RegisterRequest) {
			r.Role = domain.RoleDriver
			r.LicenseNumber = "DL-1"
			r.Vehicle = &domain.Vehicle{Categories: []domain.Category{"rickshaw"}}
		}, ErrInvalidCategory},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			req := riderRegistration()
			tc.mutate(&req)
			if _, err := env.accounts.Register(context.Background(), req); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	registered, err := env.accounts.Register(ctx, riderRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := env.accounts.Login(ctx, LoginRequest{Email: " ASHA@example.com ", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Account.ID != registered.Account.ID || result.Token == "" {
		t.Errorf("unexpected login result: %+v", result)
	}

	for _, req := range []LoginRequest{
		{Email: "asha@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "s3cret!"},
		{Email: "", Password: ""},
	} {
		if _, err := env.accounts.Login(ctx, req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%+v: expected ErrInvalidCredentials, got %v", req, err)
		}
	}
}

func TestMe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)
	registered, _ := env.accounts.Register(ctx, riderRegistration())

	acc, err := env.accounts.Me(ctx, registered.Account.ID)
	if err != nil || acc.Email != "asha@example.com" {
		t.Errorf("unexpected Me result: %+v, %v", acc, err)
	}
	if _, err := env.accounts.Me(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		want string
		ok   bool
	}{
		"9845012345":      {"9845012345", true},
		"+91 98450 12345": {"9845012345", true},
		"(984) 501-2345":  {"9845012345", true},
		"0091-9845012345": {"9845012345", true},
		"98450":           {"98450", false},
		"":                {"", false},
	}
	for in, tc := range cases {
		got, ok := normalizePhone(in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("normalizePhone(%q) = (%q, %v), want (%q, %v)", in, got, ok, tc.want, tc.ok)
		}
	}
}
