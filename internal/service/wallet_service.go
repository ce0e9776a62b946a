package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/retry"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	opCharge  = "charge"
	opPayment = "payment"
	opAdjust  = "adjust"
)

const defaultIdempotencyTTL = 24 * time.Hour

// WalletServiceDeps groups the engine's collaborators. Cache, Publisher and
// Metrics are optional; a nil value disables that post-commit step.
type WalletServiceDeps struct {
	WalletRepo ports.WalletRepository
	TxRepo     ports.TransactionRepository
	Transactor ports.DBTransactor
	Rates      ports.RateLookup
	Merchants  ports.MerchantLookup
	Cache      ports.IdempotencyCache
	Publisher  ports.LedgerPublisher
	Metrics    ports.MetricsSink
	Retry      *retry.Executor
}

// WalletConfig holds settlement policy for payments.
type WalletConfig struct {
	SettlementCurrency   string
	SettlementScale      int32
	AllowUnknownMerchant bool
	IdempotencyTTL       time.Duration
}

// WalletServiceImpl implements ports.WalletService on top of version-guarded
// updates inside snapshot transactions.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	rates      ports.RateLookup
	merchants  ports.MerchantLookup
	cache      ports.IdempotencyCache
	publisher  ports.LedgerPublisher
	metrics    ports.MetricsSink
	retry      *retry.Executor
	cfg        WalletConfig
	now        func() time.Time
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(deps WalletServiceDeps, cfg WalletConfig, log zerolog.Logger) *WalletServiceImpl {
	if deps.Metrics == nil {
		deps.Metrics = NoopMetrics{}
	}
	if deps.Retry == nil {
		deps.Retry = retry.New(retry.DefaultPolicy(), nil)
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = defaultIdempotencyTTL
	}
	cfg.SettlementCurrency = domain.NormalizeCurrency(cfg.SettlementCurrency)
	return &WalletServiceImpl{
		walletRepo: deps.WalletRepo,
		txRepo:     deps.TxRepo,
		transactor: deps.Transactor,
		rates:      deps.Rates,
		merchants:  deps.Merchants,
		cache:      deps.Cache,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		retry:      deps.Retry,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// EnsureWallet returns the user's wallet of the given kind, creating it on
// first use. Two callers racing to create the same wallet both end up with
// the row that won the insert.
func (s *WalletServiceImpl) EnsureWallet(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*domain.Wallet, error) {
	if !kind.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown wallet kind %q", kind))
	}

	wallet, err := s.walletRepo.GetByUserAndKind(ctx, userID, kind)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	wallet = domain.NewWallet(userID, kind, s.now())
	err = s.walletRepo.Create(ctx, wallet)
	if err == nil {
		s.log.Info().
			Str("user_id", userID.String()).
			Str("wallet_id", wallet.ID.String()).
			Str("wallet_kind", string(kind)).
			Msg("wallet provisioned")
		return wallet, nil
	}
	if !errors.Is(err, ports.ErrDuplicateKey) {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	// Lost the insert race; the winner's row is committed by now.
	existing, err := s.walletRepo.GetByUserAndKind(ctx, userID, kind)
	if err != nil {
		return nil, apperror.ErrWalletProvisioning(fmt.Errorf("re-read wallet: %w", err))
	}
	if existing == nil {
		return nil, apperror.ErrWalletProvisioning(errors.New("wallet missing after duplicate insert"))
	}
	return existing, nil
}

// GetWallet is the display read. It provisions the wallet lazily so a new
// user sees a zero balance instead of a 404.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, userID uuid.UUID, kind domain.WalletKind) (*domain.Wallet, error) {
	return s.EnsureWallet(ctx, userID, kind)
}

// Charge credits the user's wallet.
func (s *WalletServiceImpl) Charge(ctx context.Context, req ports.ChargeRequest) (*domain.Wallet, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("Charge amount must be greater than zero")
	}
	amount, err := s.settlementAmount(req.Amount, "Charge")
	if err != nil {
		return nil, err
	}
	kind := req.Kind
	if kind == "" {
		kind = domain.WalletKindMoney
	}

	wallet, err := s.EnsureWallet(ctx, req.UserID, kind)
	if err != nil {
		return nil, err
	}

	res, err := s.mutate(ctx, mutation{
		op:       opCharge,
		walletID: wallet.ID,
		delta:    amount,
		entry: func(w *domain.Wallet, balance decimal.Decimal) *domain.Transaction {
			return s.newEntry(w, domain.TransactionTypeCharge, amount, balance)
		},
	})
	if err != nil {
		return nil, s.mutationError(opCharge, err, apperror.ErrChargeFailed)
	}

	s.metrics.RecordCharge(amount)
	s.publish(ctx, res.entry)

	s.log.Info().
		Str("tx_id", res.entry.ID.String()).
		Str("wallet_id", res.wallet.ID.String()).
		Str("amount", amount.String()).
		Int64("version", res.wallet.Version).
		Msg("wallet charged")

	return res.wallet, nil
}

// Pay debits the user's MONEY wallet for a merchant payment. A repeated
// idempotency key returns the entry recorded the first time.
func (s *WalletServiceImpl) Pay(ctx context.Context, req ports.PaymentRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("Payment amount must be greater than zero")
	}
	currency := domain.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = s.cfg.SettlementCurrency
	}

	if req.IdempotencyKey != nil {
		existing, err := s.findPayment(ctx, *req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(existing, req.UserID)
		}
	}

	rate, err := s.rates.GetRate(ctx, currency, s.cfg.SettlementCurrency)
	if err != nil {
		return nil, s.passThrough(err, "exchange rate lookup")
	}
	settled := req.Amount.Mul(rate).Round(s.cfg.SettlementScale)
	if !settled.IsPositive() {
		return nil, apperror.Validation("Payment amount rounds to zero in settlement currency")
	}

	merchant, err := s.resolveMerchant(ctx, req.MerchantID)
	if err != nil {
		return nil, err
	}

	wallet, err := s.EnsureWallet(ctx, req.UserID, domain.WalletKindMoney)
	if err != nil {
		return nil, err
	}

	res, err := s.mutate(ctx, mutation{
		op:       opPayment,
		walletID: wallet.ID,
		delta:    settled.Neg(),
		entry: func(w *domain.Wallet, balance decimal.Decimal) *domain.Transaction {
			e := s.newEntry(w, domain.TransactionTypePayment, settled.Neg(), balance)
			e.MerchantID = &merchant.ID
			e.MerchantName = &merchant.Name
			e.MerchantCategory = &merchant.Category
			e.MerchantRegion = &merchant.CountryCode
			e.IdempotencyKey = req.IdempotencyKey
			if currency != s.cfg.SettlementCurrency {
				original := req.Amount
				e.Currency = &currency
				e.OriginalAmount = &original
			}
			return e
		},
	})
	if err != nil {
		if req.IdempotencyKey != nil && errors.Is(err, ports.ErrDuplicateKey) {
			// A concurrent request with the same key committed first.
			winner, lookupErr := s.txRepo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
			if lookupErr == nil && winner != nil {
				return s.replay(winner, req.UserID)
			}
		}
		return nil, s.mutationError(opPayment, err, apperror.ErrPaymentFailed)
	}

	s.cachePayment(ctx, res.entry)
	s.publish(ctx, res.entry)

	s.log.Info().
		Str("tx_id", res.entry.ID.String()).
		Str("wallet_id", res.wallet.ID.String()).
		Str("merchant_id", merchant.ID.String()).
		Str("amount", settled.String()).
		Str("currency", currency).
		Msg("payment processed")

	return res.entry, nil
}

// Adjust applies an operator-initiated signed change. The balance may never
// go below zero.
func (s *WalletServiceImpl) Adjust(ctx context.Context, req ports.AdjustRequest) (*domain.Wallet, error) {
	if req.Amount.IsZero() {
		return nil, apperror.Validation("Adjustment amount must not be zero")
	}
	amount, err := s.settlementAmount(req.Amount, "Adjustment")
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apperror.Validation("Adjustment reason is required")
	}
	kind := req.Kind
	if kind == "" {
		kind = domain.WalletKindMoney
	}

	wallet, err := s.EnsureWallet(ctx, req.UserID, kind)
	if err != nil {
		return nil, err
	}

	res, err := s.mutate(ctx, mutation{
		op:       opAdjust,
		walletID: wallet.ID,
		delta:    amount,
		entry: func(w *domain.Wallet, balance decimal.Decimal) *domain.Transaction {
			e := s.newEntry(w, domain.AdjustmentType(amount), amount, balance)
			e.Description = &reason
			return e
		},
	})
	if err != nil {
		return nil, s.mutationError(opAdjust, err, apperror.ErrAdjustmentFailed)
	}

	s.publish(ctx, res.entry)

	s.log.Info().
		Str("tx_id", res.entry.ID.String()).
		Str("wallet_id", res.wallet.ID.String()).
		Str("operator_id", req.OperatorID.String()).
		Str("amount", amount.String()).
		Str("reason", reason).
		Msg("balance adjusted")

	return res.wallet, nil
}

// settlementAmount rejects amounts finer than the settlement scale, which
// the ledger columns would silently truncate. The result carries exactly
// that scale.
func (s *WalletServiceImpl) settlementAmount(amount decimal.Decimal, label string) (decimal.Decimal, error) {
	scaled := amount.Round(s.cfg.SettlementScale)
	if !scaled.Equal(amount) {
		return decimal.Zero, apperror.Validation(fmt.Sprintf(
			"%s amount must have at most %d decimal places", label, s.cfg.SettlementScale))
	}
	return scaled, nil
}

// mutation is one balance change. entry builds the ledger row from the
// wallet as read inside the transaction and the balance after delta.
type mutation struct {
	op       string
	walletID uuid.UUID
	delta    decimal.Decimal
	entry    func(w *domain.Wallet, balance decimal.Decimal) *domain.Transaction
}

type mutationResult struct {
	wallet *domain.Wallet
	entry  *domain.Transaction
}

func (s *WalletServiceImpl) mutate(ctx context.Context, m mutation) (*mutationResult, error) {
	return retry.Do(ctx, s.retry, func(ctx context.Context, attempt int) (*mutationResult, error) {
		res, err := s.applyOnce(ctx, m)
		if err != nil && s.retry.IsRetryable(err) {
			s.metrics.RecordConflict(m.op)
			s.log.Debug().
				Err(err).
				Str("op", m.op).
				Str("wallet_id", m.walletID.String()).
				Int("attempt", attempt).
				Msg("write conflict, retrying")
		}
		return res, err
	})
}

// applyOnce runs one unit of work: read, compute, guarded update, append,
// commit. Nothing is visible unless the commit succeeds.
func (s *WalletServiceImpl) applyOnce(ctx context.Context, m mutation) (*mutationResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollback(ctx, dbTx)

	wallet, err := s.walletRepo.GetByIDTx(ctx, dbTx, m.walletID)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}

	next, ok := wallet.ApplyDelta(m.delta)
	if !ok {
		return nil, apperror.ErrInsufficientBalance()
	}

	updated, err := s.walletRepo.TryUpdateBalance(ctx, dbTx, wallet.ID, next, wallet.Version)
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	if !updated {
		return nil, retry.ErrConflict
	}

	entry := m.entry(wallet, next)
	if err := s.txRepo.Create(ctx, dbTx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	wallet.Balance = next
	wallet.Version++
	wallet.UpdatedAt = entry.CreatedAt
	return &mutationResult{wallet: wallet, entry: entry}, nil
}

// rollback is a no-op after a successful commit. It ignores cancellation of
// the caller's context so an abandoned request still releases its
// transaction.
func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(context.WithoutCancel(ctx))
}

func (s *WalletServiceImpl) newEntry(w *domain.Wallet, t domain.TransactionType, amount, balance decimal.Decimal) *domain.Transaction {
	return &domain.Transaction{
		ID:              uuid.New(),
		WalletID:        w.ID,
		UserID:          w.UserID,
		TransactionType: t,
		Amount:          amount,
		BalanceSnapshot: balance,
		WalletVersion:   w.Version + 1,
		Status:          domain.TransactionStatusSuccess,
		CreatedAt:       s.now(),
	}
}

// mutationError maps the outcome of a failed retry loop to the error the
// caller sees.
func (s *WalletServiceImpl) mutationError(op string, err error, exhausted func(error) *apperror.AppError) error {
	var exErr *retry.ExhaustedError
	if errors.As(err, &exErr) {
		s.log.Warn().
			Err(exErr.Err).
			Str("op", op).
			Int("attempts", exErr.Attempts).
			Msg("giving up after repeated write conflicts")
		return exhausted(exErr)
	}
	return s.passThrough(err, op)
}

// passThrough keeps AppErrors and hides everything else behind SYS_001.
func (s *WalletServiceImpl) passThrough(err error, op string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	s.log.Error().Err(err).Str("op", op).Msg("wallet operation failed")
	return apperror.InternalError(err)
}

// findPayment looks a key up in the cache first and then in the ledger.
// Cache failures fall through to the ledger.
func (s *WalletServiceImpl) findPayment(ctx context.Context, key string) (*domain.Transaction, error) {
	cacheKey := domain.IdempotencyCacheKey(key)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			var txn domain.Transaction
			if err := json.Unmarshal(cached, &txn); err == nil {
				return &txn, nil
			}
			s.log.Warn().Str("key", key).Msg("discarding unreadable cached payment")
		}
	}

	txn, err := s.txRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if txn != nil {
		s.cachePayment(ctx, txn)
	}
	return txn, nil
}

// replay returns an earlier entry for the same key, or rejects the key if a
// different user used it.
func (s *WalletServiceImpl) replay(existing *domain.Transaction, userID uuid.UUID) (*domain.Transaction, error) {
	if !existing.BelongsTo(userID) {
		s.log.Warn().
			Str("tx_id", existing.ID.String()).
			Str("user_id", userID.String()).
			Msg("idempotency key reused by another user")
		return nil, apperror.ErrIdempotencyConflict()
	}
	return existing, nil
}

func (s *WalletServiceImpl) resolveMerchant(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	merchant, err := s.merchants.GetByID(ctx, id)
	if err == nil && merchant != nil {
		return merchant, nil
	}
	if !s.cfg.AllowUnknownMerchant {
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lookup merchant: %w", err))
		}
		return nil, apperror.ErrNotFound("Merchant")
	}
	s.log.Warn().
		Err(err).
		Str("merchant_id", id.String()).
		Msg("merchant not resolved, recording placeholder metadata")
	return domain.UnknownMerchant(id), nil
}

func (s *WalletServiceImpl) cachePayment(ctx context.Context, txn *domain.Transaction) {
	if s.cache == nil || txn.IdempotencyKey == nil {
		return
	}
	body, err := json.Marshal(txn)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal payment for cache")
		return
	}
	if err := s.cache.Set(context.WithoutCancel(ctx), domain.IdempotencyCacheKey(*txn.IdempotencyKey), body, s.cfg.IdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to cache payment in redis")
	}
}

func (s *WalletServiceImpl) publish(ctx context.Context, txn *domain.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), txn); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to publish ledger event")
	}
}
