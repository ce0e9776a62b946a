package service

import (
	"context"
	"fmt"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ExchangeRateService implements ports.RateLookup.
type ExchangeRateService struct {
	repo     ports.ExchangeRateRepository
	failOpen bool
	log      zerolog.Logger
}

// NewExchangeRateService creates a new ExchangeRateService. With failOpen
// set, a missing rate converts at 1.0 instead of failing the payment.
func NewExchangeRateService(repo ports.ExchangeRateRepository, failOpen bool, log zerolog.Logger) *ExchangeRateService {
	return &ExchangeRateService{repo: repo, failOpen: failOpen, log: log}
}

// GetRate returns how many target units one source unit is worth.
func (s *ExchangeRateService) GetRate(ctx context.Context, source, target string) (decimal.Decimal, error) {
	source = domain.NormalizeCurrency(source)
	target = domain.NormalizeCurrency(target)
	if source == target {
		return decimal.NewFromInt(1), nil
	}

	rate, err := s.repo.Get(ctx, source, target)
	if err != nil {
		return decimal.Zero, apperror.InternalError(fmt.Errorf("get exchange rate %s/%s: %w", source, target, err))
	}
	if rate != nil && rate.Rate.IsPositive() {
		return rate.Rate, nil
	}

	if !s.failOpen {
		return decimal.Zero, apperror.ErrRateUnavailable(source, target)
	}
	s.log.Warn().
		Str("source", source).
		Str("target", target).
		Msg("no exchange rate configured, converting at 1.0")
	return decimal.NewFromInt(1), nil
}
