package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWalletKind(t *testing.T) {
	tests := []struct {
		in     string
		want   WalletKind
		wantOK bool
	}{
		{"", WalletKindMoney, true},
		{"money", WalletKindMoney, true},
		{" POINT ", WalletKindPoint, true},
		{"crypto", WalletKind("CRYPTO"), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseWalletKind(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWallet(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	userID := uuid.New()

	w := NewWallet(userID, WalletKindPoint, now)

	assert.NotEqual(t, uuid.Nil, w.ID)
	assert.Equal(t, userID, w.UserID)
	assert.Equal(t, WalletKindPoint, w.Kind)
	assert.True(t, w.Balance.IsZero())
	assert.Equal(t, int64(1), w.Version)
	assert.Equal(t, now, w.CreatedAt)
}

func TestWallet_ApplyDelta(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		delta   string
		want    string
		wantOK  bool
	}{
		{"credit", "500", "100", "600", true},
		{"debit within balance", "500", "-500", "0", true},
		{"debit overdraws", "500", "-1000", "-500", false},
		{"fractional", "0.10", "0.20", "0.3", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wallet{Balance: decimal.RequireFromString(tt.balance)}
			got, ok := w.ApplyDelta(decimal.RequireFromString(tt.delta))
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestAdjustmentType(t *testing.T) {
	assert.Equal(t, TransactionTypeAdminCredit, AdjustmentType(decimal.NewFromInt(10)))
	assert.Equal(t, TransactionTypeAdminDebit, AdjustmentType(decimal.NewFromInt(-10)))
}

func TestTransactionType_Valid(t *testing.T) {
	assert.True(t, TransactionTypeCharge.Valid())
	assert.True(t, TransactionTypeAdminDebit.Valid())
	assert.False(t, TransactionType("REFUND").Valid())
}

func TestTransaction_Helpers(t *testing.T) {
	userID := uuid.New()
	tx := &Transaction{UserID: userID, Amount: decimal.NewFromInt(-300)}

	assert.False(t, tx.IsCredit())
	assert.True(t, tx.BelongsTo(userID))
	assert.False(t, tx.BelongsTo(uuid.New()))
}

func TestUnknownMerchant(t *testing.T) {
	id := uuid.New()
	m := UnknownMerchant(id)

	assert.Equal(t, id, m.ID)
	assert.Equal(t, UnknownMerchantName, m.Name)
	assert.Equal(t, "UNKNOWN", m.Category)
	assert.Equal(t, "UNKNOWN", m.CountryCode)
}

func TestNormalizeIdempotencyKey(t *testing.T) {
	key, ok := NormalizeIdempotencyKey("  order-42  ")
	require.True(t, ok)
	require.NotNil(t, key)
	assert.Equal(t, "order-42", *key)

	key, ok = NormalizeIdempotencyKey("   ")
	assert.True(t, ok)
	assert.Nil(t, key)

	key, ok = NormalizeIdempotencyKey(strings.Repeat("k", MaxIdempotencyKeyLength+1))
	assert.False(t, ok)
	assert.Nil(t, key)
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "USD", NormalizeCurrency(" usd "))
	assert.Equal(t, "payment:abc", IdempotencyCacheKey("abc"))
}
