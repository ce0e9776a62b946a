package postgres

import (
	"context"
	"fmt"
	"time"
)

const healthTimeout = 2 * time.Second

// ledgerTables must all exist before the engine can take writes.
var ledgerTables = []string{"wallets", "transactions", "merchants", "exchange_rates", "audit_logs"}

// HealthCheck implements ports.HealthChecker for the ledger store. A store
// that answers pings but has not been migrated reports unhealthy.
type HealthCheck struct {
	pool    Pool
	timeout time.Duration
}

// NewHealthCheck creates a ledger store health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool, timeout: healthTimeout}
}

// Ping checks connectivity, then the schema, within one deadline.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping ledger store: %w", err)
	}

	query := `SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = ANY($1)`

	var present int64
	if err := h.pool.QueryRow(ctx, query, ledgerTables).Scan(&present); err != nil {
		return fmt.Errorf("inspect ledger schema: %w", err)
	}
	if present != int64(len(ledgerTables)) {
		return fmt.Errorf("ledger schema incomplete: %d of %d tables present", present, len(ledgerTables))
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
