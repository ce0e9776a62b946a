package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	healthTimeout = time.Second
	healthKey     = "wallet-ledger:health"
	healthKeyTTL  = 10 * time.Second
)

// HealthCheck implements ports.HealthChecker for Redis. The idempotency
// cache and the rate limiter both write, so a read-only replica that still
// answers PING reports unhealthy.
type HealthCheck struct {
	client  goredis.Cmdable
	timeout time.Duration
}

// NewHealthCheck creates a Redis health checker.
func NewHealthCheck(client goredis.Cmdable) *HealthCheck {
	return &HealthCheck{client: client, timeout: healthTimeout}
}

// Ping round-trips a PING and a short-lived SET within one deadline.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := h.client.Set(ctx, healthKey, stamp, healthKeyTTL).Err(); err != nil {
		return fmt.Errorf("write redis health key: %w", err)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "redis"
}
