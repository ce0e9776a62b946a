package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ExchangeRateRepo implements ports.ExchangeRateRepository.
type ExchangeRateRepo struct {
	pool Pool
}

// NewExchangeRateRepo creates a new ExchangeRateRepo.
func NewExchangeRateRepo(pool Pool) *ExchangeRateRepo {
	return &ExchangeRateRepo{pool: pool}
}

// Get returns the configured rate for source -> target, or nil, nil.
func (r *ExchangeRateRepo) Get(ctx context.Context, source, target string) (*domain.ExchangeRate, error) {
	query := `SELECT source_currency, target_currency, rate, updated_at
		FROM exchange_rates WHERE source_currency = $1 AND target_currency = $2`

	rate := &domain.ExchangeRate{}
	err := r.pool.QueryRow(ctx, query, source, target).Scan(
		&rate.Source, &rate.Target, &rate.Rate, &rate.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get exchange rate: %w", err)
	}
	return rate, nil
}
