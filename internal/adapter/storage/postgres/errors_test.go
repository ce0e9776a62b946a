package postgres

import (
	"errors"
	"fmt"
	"testing"

	"wallet-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("connection reset"), false},
		{"serialization failure", &pgconn.PgError{Code: "40001", Message: "restart transaction"}, true},
		{"wrapped serialization failure", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"}), true},
		{"deadlock detected", &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, true},
		{"read write conflict marker", &pgconn.PgError{Code: "XX000", Message: "change conflicts with another transaction (OC000)"}, true},
		{"schema mismatch marker in detail", &pgconn.PgError{Code: "XX000", Message: "transaction aborted", Detail: "OC001: schema has been updated"}, true},
		{"marker inside serialization failure", &pgconn.PgError{Code: "40001", Message: "OC000 conflict"}, true},
		{"unrelated internal error", &pgconn.PgError{Code: "XX000", Message: "could not read block"}, false},
		{"schema changed", &pgconn.PgError{Code: "0A000", Message: "cached plan must not change result type"}, true},
		{"other feature not supported", &pgconn.PgError{Code: "0A000", Message: "unimplemented"}, false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"check violation", &pgconn.PgError{Code: "23514"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableConflict(tt.err))
		})
	}
}

func TestMapWriteError(t *testing.T) {
	assert.ErrorIs(t, mapWriteError(&pgconn.PgError{Code: "23505"}), ports.ErrDuplicateKey)

	other := &pgconn.PgError{Code: "40001"}
	assert.Same(t, other, mapWriteError(other))
}
