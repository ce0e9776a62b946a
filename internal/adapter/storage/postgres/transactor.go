package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// isolationLevels maps database.isolation to a pgx level. Both levels give
// each attempt a stable snapshot; serializable also aborts on read/write
// dependencies, which the retry loop absorbs like any other conflict.
var isolationLevels = map[string]pgx.TxIsoLevel{
	"":                pgx.RepeatableRead,
	"snapshot":        pgx.RepeatableRead,
	"repeatable_read": pgx.RepeatableRead,
	"serializable":    pgx.Serializable,
}

// ParseIsolation resolves an isolation setting. Empty means snapshot.
func ParseIsolation(name string) (pgx.TxIsoLevel, error) {
	level, ok := isolationLevels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unsupported isolation level %q", name)
	}
	return level, nil
}

// Transactor implements ports.DBTransactor. Every transaction it opens is
// read-write at one fixed isolation level.
type Transactor struct {
	pool Pool
	opts pgx.TxOptions
}

// NewTransactor wraps the pool. A zero level means repeatable read.
func NewTransactor(pool Pool, level pgx.TxIsoLevel) *Transactor {
	if level == "" {
		level = pgx.RepeatableRead
	}
	return &Transactor{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: level, AccessMode: pgx.ReadWrite},
	}
}

// Begin opens one unit-of-work transaction. The pgx error stays wrapped so
// IsRetryableConflict still sees its SQLSTATE.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.BeginTx(ctx, t.opts)
	if err != nil {
		return nil, fmt.Errorf("begin %s transaction: %w", t.opts.IsoLevel, err)
	}
	return tx, nil
}
