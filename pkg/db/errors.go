package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgSerializationFailed = "40001"
	pgDeadlockDetected    = "40P01"
)

// IsUniqueViolation reports whether the error is a unique-constraint
// violation. When constraintName is provided it must appear in the driver's
// constraint or message text, which lets callers distinguish (say) a lot_code
// collision from an item code collision inside the same transaction.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == pgUniqueViolation {
		return constraintName == "" || strings.Contains(pgxErr.ConstraintName, constraintName)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return constraintName == "" || strings.Contains(pqErr.Constraint, constraintName)
	}

	// sqlite reports "UNIQUE constraint failed: table.column"
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	return false
}

// IsSerializationFailure reports whether the error is a transient isolation
// conflict the caller may retry: Postgres serialization failures and
// deadlocks, or sqlite's busy/locked states.
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == pgSerializationFailed || pgxErr.Code == pgDeadlockDetected
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == pgSerializationFailed || code == pgDeadlockDetected
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// NormalizeError translates storage failures into the application error
// taxonomy. Typed domain errors pass through untouched; transient isolation
// conflicts become the retryable TX_CONFLICT; anything else is a generic
// persistence failure.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if IsSerializationFailure(err) {
		return pkgerrors.Wrap(pkgerrors.CodeTxConflict, err, "transaction conflict")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persistence failure")
}
