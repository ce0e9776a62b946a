package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	txRepo     ports.TransactionRepository
	walletRepo ports.WalletRepository
	now        func() time.Time
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
) ports.ReportingService {
	return &reportingService{
		txRepo:     txRepo,
		walletRepo: walletRepo,
		now:        time.Now,
	}
}

// ListWallets returns every wallet the user owns.
func (s *reportingService) ListWallets(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	wallets, err := s.walletRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return wallets, nil
}

// GetDashboardStats returns aggregated ledger stats for the user.
func (s *reportingService) GetDashboardStats(ctx context.Context, userID uuid.UUID, period string) (*ports.TransactionStats, error) {
	var since *time.Time

	now := s.now().UTC()
	switch period {
	case "day":
		t := now.AddDate(0, 0, -1)
		since = &t
	case "week":
		t := now.AddDate(0, 0, -7)
		since = &t
	case "month":
		t := now.AddDate(0, -1, 0)
		since = &t
	case "all", "":
		// No time filter
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	stats, err := s.txRepo.GetStats(ctx, userID, since)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	return stats, nil
}

// ListTransactions returns a page of ledger entries, newest first.
func (s *reportingService) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	if params.Type != nil && !params.Type.Valid() {
		return nil, 0, apperror.Validation(fmt.Sprintf("unknown transaction type %q", *params.Type))
	}
	if params.From != nil && params.To != nil && params.From.After(*params.To) {
		return nil, 0, apperror.Validation("from must not be after to")
	}

	txns, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(err)
	}
	return txns, total, nil
}

// ReconcileWallet replays the wallet's ledger and compares it with the
// stored balance. A consistent wallet has a balance equal to the sum of its
// entries, a newest snapshot equal to the balance, and one version bump per
// entry.
func (s *reportingService) ReconcileWallet(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*ports.Reconciliation, error) {
	if !kind.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown wallet kind %q", kind))
	}

	wallet, err := s.walletRepo.GetByUserAndKind(ctx, userID, kind)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}

	summary, err := s.txRepo.SumByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	consistent := summary.Sum.Equal(wallet.Balance) &&
		wallet.Version == domain.InitialWalletVersion+summary.EntryCount
	if summary.LastSnapshot != nil {
		consistent = consistent && summary.LastSnapshot.Equal(wallet.Balance)
	}

	return &ports.Reconciliation{
		WalletID:     wallet.ID,
		Kind:         string(wallet.Kind),
		Balance:      wallet.Balance,
		Version:      wallet.Version,
		LedgerSum:    summary.Sum,
		EntryCount:   summary.EntryCount,
		LastSnapshot: summary.LastSnapshot,
		Consistent:   consistent,
	}, nil
}
