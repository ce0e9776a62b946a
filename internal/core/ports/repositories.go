package ports

import (
	"context"
	"errors"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrDuplicateKey is returned by inserts that violate a uniqueness
// constraint: (user_id, wallet_kind) on wallets or idempotency_key on
// transactions.
var ErrDuplicateKey = errors.New("duplicate key")

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside the engine's snapshot transaction.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByUserAndKind(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*domain.Wallet, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// TryUpdateBalance sets balance and bumps version only if the stored
	// version still equals expectedVersion. It returns true iff one row
	// changed.
	TryUpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance decimal.Decimal, expectedVersion int64) (bool, error)
}

// TransactionRepository defines persistence operations for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	// Reporting queries
	List(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	SumByWallet(ctx context.Context, walletID uuid.UUID) (*LedgerSummary, error)
	GetStats(ctx context.Context, userID uuid.UUID, since *time.Time) (*TransactionStats, error)
}

// TransactionListParams holds filter + pagination for listing ledger entries.
type TransactionListParams struct {
	UserID   uuid.UUID
	WalletID *uuid.UUID
	Type     *domain.TransactionType
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// LedgerSummary aggregates every entry of one wallet.
type LedgerSummary struct {
	EntryCount   int64
	Sum          decimal.Decimal
	LastSnapshot *decimal.Decimal // balance_snapshot of the newest entry
}

// TransactionStats holds aggregated statistics for the dashboard.
type TransactionStats struct {
	TotalTransactions int64
	TotalCharged      decimal.Decimal
	TotalPaid         decimal.Decimal // absolute value of payment debits
	TotalAdjusted     decimal.Decimal // signed sum of admin entries
}

// MerchantRepository is the read-only merchant directory.
type MerchantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
}

// ExchangeRateRepository reads configured conversion rates.
type ExchangeRateRepository interface {
	Get(ctx context.Context, source, target string) (*domain.ExchangeRate, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor opens snapshot-isolated storage transactions.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
