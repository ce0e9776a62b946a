// Package retry runs a unit of work again when it loses an optimistic
// concurrency race. A unit of work reports its outcome through its error:
// nil is success, ErrConflict (or anything the storage classifier accepts)
// asks for another attempt, and every other error is returned as-is.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/eapache/go-resiliency/retrier"
)

// ErrConflict is returned by a unit of work whose version-guarded update
// matched no row.
var ErrConflict = errors.New("optimistic concurrency conflict")

// Policy bounds the retry loop.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy allows 3 retries (4 attempts) with 50ms exponential backoff,
// up to 50ms jitter and a 2s ceiling.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  50 * time.Millisecond,
		MaxJitter:  50 * time.Millisecond,
		MaxDelay:   2 * time.Second,
	}
}

// Delay returns the sleep after the n-th failed attempt (0-based):
// min(base*2^n + jitter, max).
func (p Policy) Delay(n int, jitter time.Duration) time.Duration {
	d := p.BaseDelay
	for i := 0; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	d += jitter
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// ExhaustedError is returned when every allowed attempt ended in a conflict.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Executor is safe for concurrent use.
type Executor struct {
	policy      Policy
	isRetryable func(error) bool

	mu     sync.Mutex
	jitter func() float64
}

// New builds an Executor. isRetryable may be nil, in which case only
// ErrConflict is retried.
func New(policy Policy, isRetryable func(error) bool) *Executor {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Executor{
		policy:      policy,
		isRetryable: isRetryable,
		jitter:      rand.Float64,
	}
}

// WithJitterSource replaces the uniform [0,1) source used for jitter.
func (e *Executor) WithJitterSource(src func() float64) *Executor {
	e.mu.Lock()
	e.jitter = src
	e.mu.Unlock()
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// IsRetryable reports whether err would trigger another attempt.
func (e *Executor) IsRetryable(err error) bool {
	return e.Classify(err) == retrier.Retry
}

// Classify implements retrier.Classifier.
func (e *Executor) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case errors.Is(err, ErrConflict):
		return retrier.Retry
	case e.isRetryable != nil && e.isRetryable(err):
		return retrier.Retry
	default:
		return retrier.Fail
	}
}

// schedule draws a fresh backoff table so concurrent callers do not retry
// in lockstep.
func (e *Executor) schedule() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]time.Duration, e.policy.MaxRetries)
	for n := range out {
		var j time.Duration
		if e.policy.MaxJitter > 0 {
			j = time.Duration(e.jitter() * float64(e.policy.MaxJitter))
		}
		out[n] = e.policy.Delay(n, j)
	}
	return out
}

// Do runs fn until it succeeds, fails with a non-retryable error, or runs
// out of attempts. attempt starts at 0. Cancellation during a backoff sleep
// returns ctx.Err().
func Do[T any](ctx context.Context, e *Executor, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var (
		zero     T
		result   T
		attempts int
	)

	r := retrier.New(e.schedule(), e)
	err := r.RunFn(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt + 1
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := fn(ctx, attempt)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return zero, ctxErr
	}
	if e.IsRetryable(err) {
		return zero, &ExhaustedError{Attempts: attempts, Err: err}
	}
	return zero, err
}
