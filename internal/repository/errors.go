package repository

import (
	"errors"

	"tallypos/internal/apierror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Classify maps storage-level errors onto the service taxonomy so callers can
// distinguish retryable conflicts from hard failures.
//
//	40001 serialization_failure / 40P01 deadlock_detected → Conflict (retryable)
//	23505 unique_violation                                → Conflict
//	gorm.ErrRecordNotFound                                → NotFound
func Classify(err error, notFoundDetail string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.Wrap(apierror.KindNotFound, notFoundDetail, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return apierror.Wrap(apierror.KindConflict, "concurrent modification, retry the operation", err)
		case "23505":
			return apierror.Wrap(apierror.KindConflict, "duplicate record: "+pgErr.ConstraintName, err)
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint hit on
// the named constraint ("" matches any).
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
