package repository

import "context"

// Stores groups the repositories bound to one transaction.
type Stores struct {
	Rides    RideRepository
	Drivers  DriverRepository
	Accounts AccountRepository
}

// Transactor runs fn inside a single storage transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
