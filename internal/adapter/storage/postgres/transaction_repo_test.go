package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(userID, walletID uuid.UUID) *domain.Transaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	merchantID := uuid.New()
	return &domain.Transaction{
		ID:               uuid.New(),
		WalletID:         walletID,
		UserID:           userID,
		MerchantID:       &merchantID,
		MerchantName:     strPtr("Corner Cafe"),
		MerchantCategory: strPtr("FOOD"),
		MerchantRegion:   strPtr("KR"),
		TransactionType:  domain.TransactionTypePayment,
		Amount:           decimal.NewFromInt(-1300),
		BalanceSnapshot:  decimal.NewFromInt(8700),
		WalletVersion:    7,
		Currency:         strPtr("USD"),
		OriginalAmount:   decPtr("1"),
		IdempotencyKey:   strPtr("order-1"),
		Status:           domain.TransactionStatusSuccess,
		CreatedAt:        now,
	}
}

func txColumns() []string {
	return []string{"id", "wallet_id", "user_id", "merchant_id", "merchant_name", "merchant_category",
		"merchant_region", "transaction_type", "amount", "balance_snapshot", "wallet_version", "currency", "original_amount",
		"idempotency_key", "description", "status", "created_at"}
}

func addTxRow(rows *pgxmock.Rows, t *domain.Transaction) *pgxmock.Rows {
	return rows.AddRow(
		t.ID, t.WalletID, t.UserID, t.MerchantID, t.MerchantName, t.MerchantCategory, t.MerchantRegion,
		t.TransactionType, t.Amount, t.BalanceSnapshot, t.WalletVersion, t.Currency, t.OriginalAmount, t.IdempotencyKey,
		t.Description, t.Status, t.CreatedAt,
	)
}

func txRow(t *domain.Transaction) *pgxmock.Rows {
	return addTxRow(pgxmock.NewRows(txColumns()), t)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestPayment(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(
			txn.ID, txn.WalletID, txn.UserID, txn.MerchantID, txn.MerchantName, txn.MerchantCategory, txn.MerchantRegion,
			txn.TransactionType, decimalEq("-1300"), decimalEq("8700"), int64(7), txn.Currency, decimalEq("1"), txn.IdempotencyKey,
			txn.Description, txn.Status, txn.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, txn)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_Create_DuplicateIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestPayment(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(anyArgs(17)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "transactions_idempotency_key_key"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, txn)
	assert.ErrorIs(t, err, ports.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	txn := newTestPayment(uuid.New(), uuid.New())

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE idempotency_key").
		WithArgs("order-1").
		WillReturnRows(txRow(txn))

	result, err := repo.GetByIdempotencyKey(context.Background(), "order-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, txn.ID, result.ID)
	assert.Equal(t, int64(7), result.WalletVersion)
	assert.Equal(t, "Corner Cafe", *result.MerchantName)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(-1300)))
	require.NotNil(t, result.OriginalAmount)
	assert.True(t, result.OriginalAmount.Equal(decimal.NewFromInt(1)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIdempotencyKey_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE idempotency_key").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.GetByIdempotencyKey(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestTransactionRepo_GetByID_DBError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE id").
		WithArgs(id).
		WillReturnError(errors.New("timeout"))

	result, err := repo.GetByID(context.Background(), id)
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestTransactionRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	userID := uuid.New()
	walletID := uuid.New()
	t1 := newTestPayment(userID, walletID)
	t2 := newTestPayment(userID, walletID)
	t2.IdempotencyKey = strPtr("order-2")

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	rows := addTxRow(addTxRow(pgxmock.NewRows(txColumns()), t1), t2)
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE user_id .+ ORDER BY created_at DESC").
		WithArgs(userID, 20, 0).
		WillReturnRows(rows)

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{
		UserID:   userID,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, txns, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_List_WithFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	userID := uuid.New()
	walletID := uuid.New()
	txType := domain.TransactionTypeCharge
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT.+user_id = \\$1 AND wallet_id = \\$2 AND transaction_type = \\$3 AND created_at >= \\$4 AND created_at <= \\$5").
		WithArgs(userID, walletID, txType, from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE .+ ORDER BY wallet_version DESC LIMIT \\$6 OFFSET \\$7").
		WithArgs(userID, walletID, txType, from, to, 10, 10).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	txns, total, err := repo.List(context.Background(), ports.TransactionListParams{
		UserID:   userID,
		WalletID: &walletID,
		Type:     &txType,
		From:     &from,
		To:       &to,
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_SumByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT COUNT.+SUM\\(amount\\).+WHERE wallet_id = \\$1 ORDER BY wallet_version DESC LIMIT 1.+FROM transactions WHERE wallet_id").
		WithArgs(walletID).
		WillReturnRows(pgxmock.NewRows([]string{"entries", "total", "last_snapshot"}).
			AddRow(int64(3), decimal.NewFromInt(600), decPtr("600")))

	s, err := repo.SumByWallet(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.EntryCount)
	assert.True(t, s.Sum.Equal(decimal.NewFromInt(600)))
	require.NotNil(t, s.LastSnapshot)
	assert.True(t, s.LastSnapshot.Equal(decimal.NewFromInt(600)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	userID := uuid.New()
	since := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectQuery("SELECT COUNT.+FROM transactions WHERE user_id = \\$1 AND created_at >= \\$2").
		WithArgs(userID, since).
		WillReturnRows(pgxmock.NewRows([]string{"total", "charged", "paid", "adjusted"}).
			AddRow(int64(5), decimal.NewFromInt(1000), decimal.NewFromInt(300), decimal.NewFromInt(-50)))

	stats, err := repo.GetStats(context.Background(), userID, &since)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalTransactions)
	assert.True(t, stats.TotalCharged.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stats.TotalPaid.Equal(decimal.NewFromInt(300)))
	assert.True(t, stats.TotalAdjusted.Equal(decimal.NewFromInt(-50)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
