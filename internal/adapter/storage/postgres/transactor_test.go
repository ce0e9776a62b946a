package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIsolation(t *testing.T) {
	tests := []struct {
		in      string
		want    pgx.TxIsoLevel
		wantErr bool
	}{
		{"", pgx.RepeatableRead, false},
		{"snapshot", pgx.RepeatableRead, false},
		{" Repeatable_Read ", pgx.RepeatableRead, false},
		{"serializable", pgx.Serializable, false},
		{"read_committed", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIsolation(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransactor_Begin(t *testing.T) {
	tests := []struct {
		name  string
		level pgx.TxIsoLevel
		want  pgx.TxIsoLevel
	}{
		{"zero level is snapshot", "", pgx.RepeatableRead},
		{"serializable", pgx.Serializable, pgx.Serializable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: tt.want, AccessMode: pgx.ReadWrite})
			mock.ExpectRollback()

			tx, err := NewTransactor(mock, tt.level).Begin(context.Background())
			require.NoError(t, err)
			require.NoError(t, tx.Rollback(context.Background()))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransactor_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadWrite}
	mock.ExpectBeginTx(opts).WillReturnError(errors.New("pool exhausted"))
	mock.ExpectBeginTx(opts).WillReturnError(&pgconn.PgError{Code: "40001"})

	transactor := NewTransactor(mock, pgx.RepeatableRead)

	_, err = transactor.Begin(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin repeatable read transaction")
	assert.False(t, IsRetryableConflict(err))

	_, err = transactor.Begin(context.Background())
	assert.True(t, IsRetryableConflict(err), "SQLSTATE survives wrapping")
	assert.NoError(t, mock.ExpectationsWereMet())
}
