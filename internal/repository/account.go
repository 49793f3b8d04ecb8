package repository

import (
	"context"

	"ridehail/internal/domain"
)

// AccountRepository defines the persistence operations for accounts.
type AccountRepository interface {
	// Create adds a new account. Returns *DuplicateError on a taken email or
	// phone.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// GetByEmail retrieves an account by email.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}
