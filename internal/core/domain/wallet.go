package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletKind separates ledgers that are never mixed in one balance.
type WalletKind string

const (
	WalletKindMoney WalletKind = "MONEY"
	WalletKindPoint WalletKind = "POINT"
)

// Valid reports whether k is a known wallet kind.
func (k WalletKind) Valid() bool {
	return k == WalletKindMoney || k == WalletKindPoint
}

// ParseWalletKind accepts a case-insensitive kind name. An empty string
// selects MONEY.
func ParseWalletKind(s string) (WalletKind, bool) {
	if strings.TrimSpace(s) == "" {
		return WalletKindMoney, true
	}
	k := WalletKind(strings.ToUpper(strings.TrimSpace(s)))
	return k, k.Valid()
}

// InitialWalletVersion is the version of a freshly provisioned wallet.
const InitialWalletVersion int64 = 1

// Wallet is one balance per (user, kind), guarded by Version.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      WalletKind      `json:"wallet_kind"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewWallet returns an unsaved empty wallet at the initial version.
func NewWallet(userID uuid.UUID, kind WalletKind, now time.Time) *Wallet {
	return &Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Balance:   decimal.Zero,
		Version:   InitialWalletVersion,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyDelta returns the balance after adding delta, and false if the
// result would be negative.
func (w *Wallet) ApplyDelta(delta decimal.Decimal) (decimal.Decimal, bool) {
	next := w.Balance.Add(delta)
	return next, !next.IsNegative()
}
