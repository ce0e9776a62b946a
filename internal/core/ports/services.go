package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role is carried in bearer tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, role Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   Role
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached entry JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RateLookup converts between currencies.
type RateLookup interface {
	GetRate(ctx context.Context, source, target string) (decimal.Decimal, error)
}

// MerchantLookup resolves a merchant for the payment snapshot. A nil
// merchant with nil error means the merchant does not exist.
type MerchantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
}

// LedgerPublisher emits committed ledger entries to downstream consumers.
type LedgerPublisher interface {
	Publish(ctx context.Context, entry *domain.Transaction) error
}

// MetricsSink receives operational counters. It has no correctness role.
type MetricsSink interface {
	RecordCharge(amount decimal.Decimal)
	RecordConflict(operation string)
}

// RateLimitStore is a fixed-window request counter.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// WalletService is the balance-mutation engine.
type WalletService interface {
	EnsureWallet(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*domain.Wallet, error)
	GetWallet(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*domain.Wallet, error)
	Charge(ctx context.Context, req ChargeRequest) (*domain.Wallet, error)
	Pay(ctx context.Context, req PaymentRequest) (*domain.Transaction, error)
	Adjust(ctx context.Context, req AdjustRequest) (*domain.Wallet, error)
}

// ChargeRequest credits a user's wallet.
type ChargeRequest struct {
	UserID uuid.UUID
	Kind   domain.WalletKind
	Amount decimal.Decimal
}

// PaymentRequest debits the user's MONEY wallet for a merchant payment.
// Amount is in Currency and converted to the settlement currency.
type PaymentRequest struct {
	UserID         uuid.UUID
	MerchantID     uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey *string
}

// AdjustRequest is an operator-initiated signed balance change.
type AdjustRequest struct {
	UserID     uuid.UUID
	Kind       domain.WalletKind
	Amount     decimal.Decimal
	Reason     string
	OperatorID uuid.UUID
}

// ReportingService defines read-only history and reconciliation queries.
type ReportingService interface {
	ListWallets(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
	GetDashboardStats(ctx context.Context, userID uuid.UUID, period string) (*TransactionStats, error)
	ReconcileWallet(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*Reconciliation, error)
}

// Reconciliation compares a wallet balance with its ledger.
type Reconciliation struct {
	WalletID     uuid.UUID        `json:"wallet_id"`
	Kind         string           `json:"wallet_kind"`
	Balance      decimal.Decimal  `json:"balance"`
	Version      int64            `json:"version"`
	LedgerSum    decimal.Decimal  `json:"ledger_sum"`
	EntryCount   int64            `json:"entry_count"`
	LastSnapshot *decimal.Decimal `json:"last_snapshot,omitempty"`
	Consistent   bool             `json:"consistent"`
}

// AuditService records audit events without blocking the request path.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
