package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const txColumnList = `id, wallet_id, user_id, merchant_id, merchant_name, merchant_category, merchant_region,
		transaction_type, amount, balance_snapshot, wallet_version, currency, original_amount, idempotency_key,
		description, status, created_at`

// TransactionRepo implements ports.TransactionRepository. Ledger rows are
// insert-only; there is no update or delete path.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger entry within the caller's transaction. A reused
// idempotency key yields ports.ErrDuplicateKey.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + txColumnList + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.UserID, t.MerchantID, t.MerchantName, t.MerchantCategory, t.MerchantRegion,
		t.TransactionType, t.Amount, t.BalanceSnapshot, t.WalletVersion, t.Currency, t.OriginalAmount, t.IdempotencyKey,
		t.Description, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", mapWriteError(err))
	}
	return nil
}

// GetByID fetches a ledger entry by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + txColumnList + ` FROM transactions WHERE id = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey fetches the payment entry recorded under key.
func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumnList + ` FROM transactions WHERE idempotency_key = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, key))
}

// List fetches a user's ledger entries, newest first. Within one wallet
// "newest" is the highest wallet version; across wallets it falls back to
// created_at.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIdx))
	args = append(args, params.UserID)
	argIdx++

	if params.WalletID != nil {
		conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
		args = append(args, *params.WalletID)
		argIdx++
	}
	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("transaction_type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	// Fetch page
	order := "created_at DESC, id DESC"
	if params.WalletID != nil {
		order = "wallet_version DESC"
	}
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		txColumnList, where, order, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransactionFields(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

// SumByWallet aggregates the whole ledger of one wallet for reconciliation.
// The last snapshot is the one written by the highest wallet version.
func (r *TransactionRepo) SumByWallet(ctx context.Context, walletID uuid.UUID) (*ports.LedgerSummary, error) {
	query := `SELECT
		COUNT(*) AS entries,
		COALESCE(SUM(amount), 0) AS total,
		(SELECT balance_snapshot FROM transactions
			WHERE wallet_id = $1 ORDER BY wallet_version DESC LIMIT 1) AS last_snapshot
		FROM transactions WHERE wallet_id = $1`

	s := &ports.LedgerSummary{}
	err := r.pool.QueryRow(ctx, query, walletID).Scan(&s.EntryCount, &s.Sum, &s.LastSnapshot)
	if err != nil {
		return nil, fmt.Errorf("sum wallet ledger: %w", err)
	}
	return s, nil
}

// GetStats retrieves aggregated ledger statistics for a user.
func (r *TransactionRepo) GetStats(ctx context.Context, userID uuid.UUID, since *time.Time) (*ports.TransactionStats, error) {
	args := []any{userID}
	condition := "user_id = $1"

	if since != nil {
		condition += " AND created_at >= $2"
		args = append(args, *since)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'CHARGE'), 0) AS charged,
		COALESCE(-SUM(amount) FILTER (WHERE transaction_type = 'PAYMENT'), 0) AS paid,
		COALESCE(SUM(amount) FILTER (WHERE transaction_type IN ('ADMIN_CREDIT', 'ADMIN_DEBIT')), 0) AS adjusted
		FROM transactions WHERE %s`, condition)

	stats := &ports.TransactionStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalTransactions, &stats.TotalCharged, &stats.TotalPaid, &stats.TotalAdjusted,
	)
	if err != nil {
		return nil, fmt.Errorf("get transaction stats: %w", err)
	}
	return stats, nil
}

// scanTransaction returns nil, nil when the row does not exist.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t, err := scanTransactionFields(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

func scanTransactionFields(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.WalletID, &t.UserID, &t.MerchantID, &t.MerchantName, &t.MerchantCategory, &t.MerchantRegion,
		&t.TransactionType, &t.Amount, &t.BalanceSnapshot, &t.WalletVersion, &t.Currency, &t.OriginalAmount, &t.IdempotencyKey,
		&t.Description, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
