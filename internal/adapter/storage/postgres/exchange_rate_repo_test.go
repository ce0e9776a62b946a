package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeRateRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewExchangeRateRepo(mock)
	updated := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM exchange_rates WHERE source_currency").
		WithArgs("USD", "KRW").
		WillReturnRows(pgxmock.NewRows([]string{"source_currency", "target_currency", "rate", "updated_at"}).
			AddRow("USD", "KRW", decimal.RequireFromString("1300.50"), updated))

	rate, err := repo.Get(context.Background(), "USD", "KRW")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, rate.Rate.Equal(decimal.RequireFromString("1300.5")))
	assert.Equal(t, updated, rate.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeRateRepo_Get_Missing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewExchangeRateRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM exchange_rates").
		WithArgs("JPY", "KRW").
		WillReturnError(pgx.ErrNoRows)

	rate, err := repo.Get(context.Background(), "JPY", "KRW")
	assert.NoError(t, err)
	assert.Nil(t, rate)
}
