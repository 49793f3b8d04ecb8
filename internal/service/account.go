package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ridehail/internal/domain"
	"ridehail/internal/logging"
	"ridehail/internal/repository"
)

const minPasswordLength = 6

// TokenIssuer signs access tokens for accounts.
type TokenIssuer interface {
	Issue(accountID string, role domain.Role) (string, error)
}

// AccountService handles registration and login.
type AccountService struct {
	tx          repository.Transactor
	accountRepo repository.AccountRepository
	issuer      TokenIssuer
	logger      *slog.Logger
	hashCost    int
	now         func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	tx repository.Transactor,
	accountRepo repository.AccountRepository,
	issuer TokenIssuer,
	logger *slog.Logger,
) *AccountService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AccountService{
		tx:          tx,
		accountRepo: accountRepo,
		issuer:      issuer,
		logger:      logger,
		hashCost:    bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// RegisterRequest contains the parameters for creating an account.
type RegisterRequest struct {
	Name          string
	Email         string
	Password      string
	Phone         string
	Role          domain.Role // Optional: defaults to rider
	Vehicle       *domain.Vehicle
	LicenseNumber string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Account *domain.Account
	Driver  *domain.Driver // set for new driver registrations
	Token   string
}

// Register creates an account. Drivers get their profile in the same
// transaction, so a rejected profile leaves no orphan account behind.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := validateRegister(&req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         req.Role,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}

	var driver *domain.Driver
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		if err := st.Accounts.Create(ctx, account); err != nil {
			return err
		}
		if account.Role != domain.RoleDriver {
			return nil
		}

		vehicle := *req.Vehicle
		vehicle.Normalize()
		driver = &domain.Driver{
			ID:            uuid.New().String(),
			AccountID:     account.ID,
			Vehicle:       vehicle,
			LicenseNumber: req.LicenseNumber,
			Available:     true,
			CreatedAt:     now,
		}
		return st.Drivers.Create(ctx, driver)
	})
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(account.ID, account.Role)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID, "role", account.Role)
	return &AuthResult{Account: account, Driver: driver, Token: token}, nil
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string
	Password string
}

// Login checks credentials and issues a token.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(account.ID, account.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Token: token}, nil
}

// Me returns the caller's account.
func (s *AccountService) Me(ctx context.Context, accountID string) (*domain.Account, error) {
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}
	return s.accountRepo.GetByID(ctx, accountID)
}

func validateRegister(req *RegisterRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return ErrMissingName
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return ErrInvalidEmail
	}

	if len(req.Password) < minPasswordLength {
		return ErrWeakPassword
	}

	phone, ok := normalizePhone(req.Phone)
	if !ok {
		return ErrInvalidPhone
	}
	req.Phone = phone

	if req.Role == "" {
		req.Role = domain.RoleRider
	}
	switch req.Role {
	case domain.RoleRider:
	case domain.RoleDriver:
		req.LicenseNumber = strings.TrimSpace(req.LicenseNumber)
		if req.Vehicle == nil || req.LicenseNumber == "" {
			return ErrMissingVehicle
		}
		for _, c := range req.Vehicle.Categories {
			if !c.Valid() {
				return ErrInvalidCategory
			}
		}
	default:
		return ErrInvalidRole
	}
	return nil
}

// normalizePhone keeps the digits and, for longer numbers, the last ten, so
// country prefixes are dropped.
func normalizePhone(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits, len(digits) == 10
}
