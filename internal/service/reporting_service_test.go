package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reportingTestDeps struct {
	svc        *reportingService
	txRepo     *mocks.MockTransactionRepository
	walletRepo *mocks.MockWalletRepository
}

func setupReportingService(t *testing.T) *reportingTestDeps {
	ctrl := gomock.NewController(t)
	d := &reportingTestDeps{
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
	}
	d.svc = NewReportingService(d.txRepo, d.walletRepo).(*reportingService)
	return d
}

func TestReportingService_GetDashboardStats_All(t *testing.T) {
	d := setupReportingService(t)

	userID := uuid.New()
	expected := &ports.TransactionStats{
		TotalTransactions: 12,
		TotalCharged:      decimal.NewFromInt(50000),
		TotalPaid:         decimal.NewFromInt(32000),
		TotalAdjusted:     decimal.NewFromInt(-500),
	}

	d.txRepo.EXPECT().GetStats(gomock.Any(), userID, (*time.Time)(nil)).Return(expected, nil)

	result, err := d.svc.GetDashboardStats(context.Background(), userID, "all")
	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestReportingService_GetDashboardStats_WithPeriod(t *testing.T) {
	d := setupReportingService(t)
	fixed := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	d.svc.now = func() time.Time { return fixed }

	userID := uuid.New()
	expected := &ports.TransactionStats{TotalTransactions: 10}

	d.txRepo.EXPECT().GetStats(gomock.Any(), userID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ uuid.UUID, since *time.Time) (*ports.TransactionStats, error) {
			require.NotNil(t, since)
			assert.Equal(t, fixed.AddDate(0, 0, -7), *since)
			return expected, nil
		},
	)

	result, err := d.svc.GetDashboardStats(context.Background(), userID, "week")
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.TotalTransactions)
}

func TestReportingService_GetDashboardStats_InvalidPeriod(t *testing.T) {
	d := setupReportingService(t)

	_, err := d.svc.GetDashboardStats(context.Background(), uuid.New(), "invalid")
	assertAppError(t, err, "PAY_002")
}

func TestReportingService_GetDashboardStats_RepoError(t *testing.T) {
	d := setupReportingService(t)

	d.txRepo.EXPECT().GetStats(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, err := d.svc.GetDashboardStats(context.Background(), uuid.New(), "day")
	assertAppError(t, err, "SYS_001")
}

func TestReportingService_ListTransactions_NormalisesPaging(t *testing.T) {
	d := setupReportingService(t)
	userID := uuid.New()

	d.txRepo.EXPECT().List(gomock.Any(), ports.TransactionListParams{
		UserID:   userID,
		Page:     1,
		PageSize: maxPageSize,
	}).Return([]domain.Transaction{{ID: uuid.New()}}, int64(1), nil)

	txns, total, err := d.svc.ListTransactions(context.Background(), ports.TransactionListParams{
		UserID:   userID,
		Page:     0,
		PageSize: 5000,
	})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, int64(1), total)
}

func TestReportingService_ListTransactions_Validation(t *testing.T) {
	d := setupReportingService(t)
	bogus := domain.TransactionType("REFUND")
	from := time.Now()
	to := from.Add(-time.Hour)

	_, _, err := d.svc.ListTransactions(context.Background(), ports.TransactionListParams{Type: &bogus})
	assertAppError(t, err, "PAY_002")

	_, _, err = d.svc.ListTransactions(context.Background(), ports.TransactionListParams{From: &from, To: &to})
	assertAppError(t, err, "PAY_002")
}

func TestReportingService_ListWallets(t *testing.T) {
	d := setupReportingService(t)
	userID := uuid.New()
	wallets := []domain.Wallet{
		{ID: uuid.New(), UserID: userID, Kind: domain.WalletKindMoney},
		{ID: uuid.New(), UserID: userID, Kind: domain.WalletKindPoint},
	}

	d.walletRepo.EXPECT().ListByUser(gomock.Any(), userID).Return(wallets, nil)

	got, err := d.svc.ListWallets(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, wallets, got)
}

func TestReportingService_ReconcileWallet(t *testing.T) {
	userID := uuid.New()
	walletID := uuid.New()
	snap := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	tests := []struct {
		name       string
		balance    string
		version    int64
		summary    ports.LedgerSummary
		consistent bool
	}{
		{
			name:       "fresh wallet",
			balance:    "0",
			version:    1,
			summary:    ports.LedgerSummary{Sum: decimal.Zero},
			consistent: true,
		},
		{
			name:       "matching ledger",
			balance:    "700",
			version:    4,
			summary:    ports.LedgerSummary{EntryCount: 3, Sum: decimal.NewFromInt(700), LastSnapshot: snap("700")},
			consistent: true,
		},
		{
			name:       "balance drifted from ledger",
			balance:    "900",
			version:    4,
			summary:    ports.LedgerSummary{EntryCount: 3, Sum: decimal.NewFromInt(700), LastSnapshot: snap("700")},
			consistent: false,
		},
		{
			name:       "version skipped an entry",
			balance:    "700",
			version:    5,
			summary:    ports.LedgerSummary{EntryCount: 3, Sum: decimal.NewFromInt(700), LastSnapshot: snap("700")},
			consistent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupReportingService(t)
			ctx := context.Background()
			summary := tt.summary

			d.walletRepo.EXPECT().GetByUserAndKind(ctx, userID, domain.WalletKindMoney).Return(&domain.Wallet{
				ID:      walletID,
				UserID:  userID,
				Kind:    domain.WalletKindMoney,
				Balance: decimal.RequireFromString(tt.balance),
				Version: tt.version,
			}, nil)
			d.txRepo.EXPECT().SumByWallet(ctx, walletID).Return(&summary, nil)

			rec, err := d.svc.ReconcileWallet(ctx, userID, domain.WalletKindMoney)
			require.NoError(t, err)
			assert.Equal(t, walletID, rec.WalletID)
			assert.Equal(t, "MONEY", rec.Kind)
			assert.Equal(t, tt.summary.EntryCount, rec.EntryCount)
			assert.Equal(t, tt.consistent, rec.Consistent)
		})
	}
}

func TestReportingService_ReconcileWallet_NotFound(t *testing.T) {
	d := setupReportingService(t)
	userID := uuid.New()

	d.walletRepo.EXPECT().GetByUserAndKind(gomock.Any(), userID, domain.WalletKindPoint).Return(nil, nil)

	_, err := d.svc.ReconcileWallet(context.Background(), userID, domain.WalletKindPoint)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindNotFound, appErr.Kind)
}
