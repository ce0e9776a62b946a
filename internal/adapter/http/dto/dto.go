package dto

import (
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// ChargeRequest is the request body for crediting a wallet.
type ChargeRequest struct {
	Amount     decimal.Decimal `json:"amount" binding:"decimal_positive"`
	WalletKind string          `json:"wallet_kind" binding:"omitempty,wallet_kind"`
}

// PaymentRequest is the request body for a merchant payment. The
// idempotency key may also arrive in the Idempotency-Key header.
type PaymentRequest struct {
	MerchantID     string          `json:"merchant_id" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount" binding:"decimal_positive"`
	Currency       string          `json:"currency" binding:"omitempty,currency"`
	IdempotencyKey string          `json:"idempotency_key" binding:"omitempty,max=128,safe_id"`
}

// AdjustRequest is the request body for an operator balance adjustment.
type AdjustRequest struct {
	Amount     decimal.Decimal `json:"amount" binding:"decimal_nonzero"`
	WalletKind string          `json:"wallet_kind" binding:"omitempty,wallet_kind"`
	Reason     string          `json:"reason" binding:"required,max=500"`
}

// WalletResponse is the response body for a wallet.
type WalletResponse struct {
	ID         string          `json:"id"`
	WalletKind string          `json:"wallet_kind"`
	Balance    decimal.Decimal `json:"balance"`
	Version    int64           `json:"version"`
	UpdatedAt  string          `json:"updated_at"`
}

// TransactionResponse is the response body for a ledger entry.
type TransactionResponse struct {
	ID               string           `json:"id"`
	WalletID         string           `json:"wallet_id"`
	TransactionType  string           `json:"transaction_type"`
	Amount           decimal.Decimal  `json:"amount"`
	BalanceSnapshot  decimal.Decimal  `json:"balance_snapshot"`
	Currency         *string          `json:"currency,omitempty"`
	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"`
	MerchantID       *string          `json:"merchant_id,omitempty"`
	MerchantName     *string          `json:"merchant_name,omitempty"`
	MerchantCategory *string          `json:"merchant_category,omitempty"`
	MerchantRegion   *string          `json:"merchant_region,omitempty"`
	IdempotencyKey   *string          `json:"idempotency_key,omitempty"`
	Description      *string          `json:"description,omitempty"`
	Status           string           `json:"status"`
	CreatedAt        string           `json:"created_at"`
}

// DashboardStatsResponse is the response for dashboard statistics.
type DashboardStatsResponse struct {
	TotalTransactions int64           `json:"total_transactions"`
	TotalCharged      decimal.Decimal `json:"total_charged"`
	TotalPaid         decimal.Decimal `json:"total_paid"`
	TotalAdjusted     decimal.Decimal `json:"total_adjusted"`
}

// NewWalletResponse converts a domain wallet.
func NewWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:         w.ID.String(),
		WalletKind: string(w.Kind),
		Balance:    w.Balance,
		Version:    w.Version,
		UpdatedAt:  w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// NewTransactionResponse converts a domain ledger entry.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:               t.ID.String(),
		WalletID:         t.WalletID.String(),
		TransactionType:  string(t.TransactionType),
		Amount:           t.Amount,
		BalanceSnapshot:  t.BalanceSnapshot,
		Currency:         t.Currency,
		OriginalAmount:   t.OriginalAmount,
		MerchantName:     t.MerchantName,
		MerchantCategory: t.MerchantCategory,
		MerchantRegion:   t.MerchantRegion,
		IdempotencyKey:   t.IdempotencyKey,
		Description:      t.Description,
		Status:           string(t.Status),
		CreatedAt:        t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.MerchantID != nil {
		s := t.MerchantID.String()
		resp.MerchantID = &s
	}
	return resp
}

// NewDashboardStatsResponse converts aggregated stats.
func NewDashboardStatsResponse(s *ports.TransactionStats) DashboardStatsResponse {
	return DashboardStatsResponse{
		TotalTransactions: s.TotalTransactions,
		TotalCharged:      s.TotalCharged,
		TotalPaid:         s.TotalPaid,
		TotalAdjusted:     s.TotalAdjusted,
	}
}
