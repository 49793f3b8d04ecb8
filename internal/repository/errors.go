package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a conditional write matched no row
	// because the stored state changed underneath the caller.
	ErrConflict = errors.New("entity was modified concurrently")

	// ErrDuplicate is wrapped by DuplicateError.
	ErrDuplicate = errors.New("duplicate value")
)

// DuplicateError reports a uniqueness violation on a named field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already in use"
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}
