package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"ridehail/internal/repository"
)

const uniqueViolation = pq.ErrorCode("23505")

// constraintFields maps unique constraints to the field reported to callers.
var constraintFields = map[string]string{
	"accounts_email_key":          "email",
	"accounts_phone_key":          "phone",
	"drivers_account_id_key":      "account",
	"drivers_license_number_key":  "license_number",
	"rides_one_active_per_rider":  "rider",
	"rides_one_active_per_driver": "driver",
}

// translateError converts unique violations into *repository.DuplicateError.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		field, ok := constraintFields[pqErr.Constraint]
		if !ok {
			field = pqErr.Constraint
		}
		return &repository.DuplicateError{Field: field}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func timeOrZero(t sql.NullTime) time.Time {
	if t.Valid {
		return t.Time
	}
	return time.Time{}
}
