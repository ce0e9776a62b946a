package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schemaQuery = "SELECT COUNT\\(\\*\\) FROM information_schema.tables"

func TestHealthCheck_Ping(t *testing.T) {
	tests := []struct {
		name    string
		present int64
		wantErr string
	}{
		{"migrated", int64(len(ledgerTables)), ""},
		{"missing tables", 2, "ledger schema incomplete: 2 of 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectPing()
			mock.ExpectQuery(schemaQuery).
				WithArgs(ledgerTables).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(tt.present))

			hc := NewHealthCheck(mock)
			assert.Equal(t, "postgresql", hc.Name())

			err = hc.Ping(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHealthCheck_PingFailureSkipsSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = NewHealthCheck(mock).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping ledger store")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheck_SchemaQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	mock.ExpectQuery(schemaQuery).
		WithArgs(ledgerTables).
		WillReturnError(context.DeadlineExceeded)

	err = NewHealthCheck(mock).Ping(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}
