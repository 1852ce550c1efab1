package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_inventory_lots_lot_code"}
	if !IsUniqueViolation(pgxErr, "lot_code") {
		t.Fatalf("pgx unique violation with matching constraint should match")
	}
	if IsUniqueViolation(pgxErr, "items_code") {
		t.Fatalf("constraint name mismatch should not match")
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "items_code_key"}
	if !IsUniqueViolation(pqErr, "items_code") {
		t.Fatalf("pq unique violation should match")
	}

	sqliteErr := errors.New("UNIQUE constraint failed: inventory_lots.lot_code")
	if !IsUniqueViolation(sqliteErr, "lot_code") {
		t.Fatalf("sqlite unique violation should match")
	}

	if IsUniqueViolation(errors.New("some other failure"), "") {
		t.Fatalf("unrelated errors are not unique violations")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil is not a violation")
	}
}

func TestIsSerializationFailure(t *testing.T) {
	if !IsSerializationFailure(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("serialization failure should be transient")
	}
	if !IsSerializationFailure(&pq.Error{Code: "40P01"}) {
		t.Fatalf("deadlock should be transient")
	}
	if !IsSerializationFailure(fmt.Errorf("query: %w", errors.New("database is locked"))) {
		t.Fatalf("sqlite busy should be transient")
	}
	if IsSerializationFailure(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation is not transient")
	}
}
