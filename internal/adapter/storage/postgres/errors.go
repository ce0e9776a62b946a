package postgres

import (
	"errors"
	"strings"

	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the store uses to report a lost optimistic race.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateFeatureNotSupported  = "0A000"
	sqlStateUniqueViolation      = "23505"
)

// Distributed PostgreSQL-compatible stores report their own conflict
// reasons inside a 40001 or a bare error; the marker names the reason.
var conflictMarkers = []string{
	"OC000", // read/write conflict
	"OC001", // schema version mismatch
}

// IsRetryableConflict reports whether err is a conflict that a fresh
// attempt of the same unit of work may not hit. That covers serialization
// failures, deadlocks, the OC000/OC001 conflicts of distributed stores and
// a schema change that invalidated a cached plan.
func IsRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return true
	case sqlStateFeatureNotSupported:
		if strings.Contains(pgErr.Message, "cached plan must not change result type") {
			return true
		}
	}
	return hasConflictMarker(pgErr.Message) || hasConflictMarker(pgErr.Detail)
}

func hasConflictMarker(s string) bool {
	for _, m := range conflictMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// mapWriteError turns a unique violation into ports.ErrDuplicateKey.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation {
		return ports.ErrDuplicateKey
	}
	return err
}
