package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of balance mutation.
type TransactionType string

const (
	TransactionTypeCharge      TransactionType = "CHARGE"
	TransactionTypePayment     TransactionType = "PAYMENT"
	TransactionTypeAdminCredit TransactionType = "ADMIN_CREDIT"
	TransactionTypeAdminDebit  TransactionType = "ADMIN_DEBIT"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeCharge, TransactionTypePayment, TransactionTypeAdminCredit, TransactionTypeAdminDebit:
		return true
	}
	return false
}

// AdjustmentType picks ADMIN_CREDIT or ADMIN_DEBIT from the sign of amount.
func AdjustmentType(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionTypeAdminDebit
	}
	return TransactionTypeAdminCredit
}

// TransactionStatus is always SUCCESS for stored entries; only committed
// mutations produce a row.
type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
)

// Transaction is an immutable ledger entry. Amount is the signed delta,
// BalanceSnapshot the wallet balance right after it and WalletVersion the
// wallet version that the update produced. WalletVersion orders a wallet's
// entries by commit, independent of any clock.
type Transaction struct {
	ID               uuid.UUID         `json:"id"`
	WalletID         uuid.UUID         `json:"wallet_id"`
	UserID           uuid.UUID         `json:"user_id"`
	MerchantID       *uuid.UUID        `json:"merchant_id,omitempty"`
	MerchantName     *string           `json:"merchant_name,omitempty"`
	MerchantCategory *string           `json:"merchant_category,omitempty"`
	MerchantRegion   *string           `json:"merchant_region,omitempty"`
	TransactionType  TransactionType   `json:"transaction_type"`
	Amount           decimal.Decimal   `json:"amount"`
	BalanceSnapshot  decimal.Decimal   `json:"balance_snapshot"`
	WalletVersion    int64             `json:"wallet_version"`
	Currency         *string           `json:"currency,omitempty"`
	OriginalAmount   *decimal.Decimal  `json:"original_amount,omitempty"`
	IdempotencyKey   *string           `json:"idempotency_key,omitempty"`
	Description      *string           `json:"description,omitempty"`
	Status           TransactionStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
}

// IsCredit returns true if the entry increased the balance.
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// BelongsTo returns true if the entry was written for userID.
func (t *Transaction) BelongsTo(userID uuid.UUID) bool {
	return t.UserID == userID
}
