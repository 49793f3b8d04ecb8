package postgres

import (
	"context"
	"database/sql"

	"ridehail/internal/repository"
)

// Transactor runs work inside a *sql.Tx with transaction-scoped repositories.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

var _ repository.Transactor = (*Transactor)(nil)

// WithinTx begins a transaction, runs fn and commits. Any error from fn or
// from the commit rolls the transaction back.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stores := repository.Stores{
		Rides:    NewRideRepositoryWithTx(tx),
		Drivers:  NewDriverRepositoryWithTx(tx),
		Accounts: NewAccountRepositoryWithTx(tx),
	}

	if err = fn(ctx, stores); err != nil {
		return err
	}

	return tx.Commit()
}
