package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// AccountRepository implements repository.AccountRepository using PostgreSQL.
type AccountRepository struct {
	q Querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{q: db}
}

// NewAccountRepositoryWithTx creates an account repository using a transaction.
func NewAccountRepositoryWithTx(tx *sql.Tx) *AccountRepository {
	return &AccountRepository{q: tx}
}

// Create adds a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `INSERT INTO accounts (id, name, email, phone, role, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.ExecContext(ctx, query,
		account.ID,
		account.Name,
		strings.ToLower(account.Email),
		account.Phone,
		account.Role,
		account.PasswordHash,
		account.CreatedAt,
	)
	return translateError(err)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT id, name, email, phone, role, password_hash, created_at FROM accounts WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetByEmail retrieves an account by email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT id, name, email, phone, role, password_hash, created_at FROM accounts WHERE email = $1`
	return r.get(ctx, query, strings.ToLower(email))
}

func (r *AccountRepository) get(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var account domain.Account
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.Phone,
		&account.Role,
		&account.PasswordHash,
		&account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
