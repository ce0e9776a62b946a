package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// errWriteSkew is what memStore reports when a commit finds that a row it
// wrote was changed by a transaction that committed after its snapshot.
var errWriteSkew = errors.New("memstore: concurrent update")

type walletKey struct {
	user uuid.UUID
	kind domain.WalletKind
}

// memStore is a snapshot-isolation store for engine tests. Each transaction
// reads the wallets committed when it began and validates its writes at
// commit time (first committer wins).
type memStore struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]domain.Wallet
	byOwner map[walletKey]uuid.UUID
	entries []domain.Transaction
	keys    map[string]int

	begins        int
	failUpdates   int
	updateBarrier func()
}

func newMemStore() *memStore {
	return &memStore{
		wallets: make(map[uuid.UUID]domain.Wallet),
		byOwner: make(map[walletKey]uuid.UUID),
		keys:    make(map[string]int),
	}
}

// seed stores a committed wallet directly.
func (s *memStore) seed(w domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.ID] = w
	s.byOwner[walletKey{w.UserID, w.Kind}] = w.ID
}

func (s *memStore) wallet(id uuid.UUID) domain.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[id]
}

// ledger returns the committed entries of one wallet in commit order.
func (s *memStore) ledger(walletID uuid.UUID) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, e := range s.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) beginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begins
}

// Begin implements ports.DBTransactor.
func (s *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	snap := make(map[uuid.UUID]domain.Wallet, len(s.wallets))
	for id, w := range s.wallets {
		snap[id] = w
	}
	return &memTx{store: s, snapshot: snap, writes: make(map[uuid.UUID]memWrite)}, nil
}

type memWrite struct {
	balance     decimal.Decimal
	baseVersion int64
}

type memTx struct {
	pgx.Tx
	store    *memStore
	snapshot map[uuid.UUID]domain.Wallet
	writes   map[uuid.UUID]memWrite
	inserts  []domain.Transaction
	done     bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	if err := ctx.Err(); err != nil {
		return err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, w := range t.writes {
		if s.wallets[id].Version != w.baseVersion {
			return errWriteSkew
		}
	}
	for _, e := range t.inserts {
		if e.IdempotencyKey != nil {
			if _, taken := s.keys[*e.IdempotencyKey]; taken {
				return ports.ErrDuplicateKey
			}
		}
	}

	for id, w := range t.writes {
		cur := s.wallets[id]
		cur.Balance = w.balance
		cur.Version++
		s.wallets[id] = cur
	}
	for _, e := range t.inserts {
		if e.IdempotencyKey != nil {
			s.keys[*e.IdempotencyKey] = len(s.entries)
		}
		s.entries = append(s.entries, e)
	}
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	return nil
}

// memWalletRepo implements ports.WalletRepository over memStore.
type memWalletRepo struct{ s *memStore }

func (r memWalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := walletKey{w.UserID, w.Kind}
	if _, ok := r.s.byOwner[k]; ok {
		return ports.ErrDuplicateKey
	}
	r.s.wallets[w.ID] = *w
	r.s.byOwner[k] = w.ID
	return nil
}

func (r memWalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r memWalletRepo) GetByUserAndKind(_ context.Context, userID uuid.UUID, kind domain.WalletKind) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.byOwner[walletKey{userID, kind}]
	if !ok {
		return nil, nil
	}
	w := r.s.wallets[id]
	return &w, nil
}

func (r memWalletRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Wallet
	for _, w := range r.s.wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (r memWalletRepo) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t := tx.(*memTx)
	w, ok := t.snapshot[id]
	if !ok {
		return nil, nil
	}
	if pending, ok := t.writes[id]; ok {
		w.Balance = pending.balance
	}
	return &w, nil
}

// TryUpdateBalance compares against the latest committed version, the way a
// version-guarded UPDATE re-reads the row it is about to change.
func (r memWalletRepo) TryUpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, newBalance decimal.Decimal, expectedVersion int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if r.s.updateBarrier != nil {
		r.s.updateBarrier()
	}
	t := tx.(*memTx)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failUpdates > 0 {
		r.s.failUpdates--
		return false, nil
	}
	cur, ok := r.s.wallets[walletID]
	if !ok || cur.Version != expectedVersion {
		return false, nil
	}
	t.writes[walletID] = memWrite{balance: newBalance, baseVersion: expectedVersion}
	return true, nil
}

// memTxRepo implements ports.TransactionRepository over memStore.
type memTxRepo struct{ s *memStore }

func (r memTxRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := tx.(*memTx)
	if e.IdempotencyKey != nil {
		r.s.mu.Lock()
		_, taken := r.s.keys[*e.IdempotencyKey]
		r.s.mu.Unlock()
		if taken {
			return ports.ErrDuplicateKey
		}
	}
	t.inserts = append(t.inserts, *e)
	return nil
}

func (r memTxRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, nil
}

func (r memTxRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i, ok := r.s.keys[key]
	if !ok {
		return nil, nil
	}
	out := r.s.entries[i]
	return &out, nil
}

func (r memTxRepo) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Transaction
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		if r.s.entries[i].UserID == params.UserID {
			out = append(out, r.s.entries[i])
		}
	}
	return out, int64(len(out)), nil
}

func (r memTxRepo) SumByWallet(_ context.Context, walletID uuid.UUID) (*ports.LedgerSummary, error) {
	entries := r.s.ledger(walletID)
	sum := &ports.LedgerSummary{Sum: decimal.Zero}
	for _, e := range entries {
		sum.EntryCount++
		sum.Sum = sum.Sum.Add(e.Amount)
	}
	var newest *domain.Transaction
	for i := range entries {
		if newest == nil || entries[i].WalletVersion > newest.WalletVersion {
			newest = &entries[i]
		}
	}
	if newest != nil {
		last := newest.BalanceSnapshot
		sum.LastSnapshot = &last
	}
	return sum, nil
}

func (r memTxRepo) GetStats(context.Context, uuid.UUID, *time.Time) (*ports.TransactionStats, error) {
	return &ports.TransactionStats{}, nil
}

// memCache implements ports.IdempotencyCache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

// staticRates implements ports.RateLookup.
type staticRates map[string]decimal.Decimal

func (r staticRates) GetRate(_ context.Context, source, target string) (decimal.Decimal, error) {
	if source == target {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := r[source+"/"+target]; ok {
		return rate, nil
	}
	return decimal.NewFromInt(1), nil
}

// staticMerchants implements ports.MerchantLookup.
type staticMerchants map[uuid.UUID]domain.Merchant

func (m staticMerchants) GetByID(_ context.Context, id uuid.UUID) (*domain.Merchant, error) {
	if merchant, ok := m[id]; ok {
		return &merchant, nil
	}
	return nil, nil
}
