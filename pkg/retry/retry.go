package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default bounds applied when a Config field is left as its zero value.
const (
	DefaultMaxRetries     = 3
	DefaultBaseDelay      = 500 * time.Millisecond
	DefaultMaxDelay       = 10 * time.Second
	DefaultAttemptTimeout = 15 * time.Second
)

// Config bounds a retried operation.
type Config struct {
	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries int
	// BaseDelay is the delay before the first retry; subsequent delays double.
	BaseDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
	// AttemptTimeout bounds each individual attempt.
	AttemptTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	return c
}

// Operation is a fallible unit of work.
type Operation func(ctx context.Context) error

// Permanent marks err as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do executes op, retrying on failure with exponentially increasing delay
// until it succeeds or cfg.MaxRetries additional attempts are exhausted.
// The last error is returned unchanged so callers can still dispatch on it.
// The backoff keeps its default randomization so concurrent callers don't
// retry in lockstep.
func Do(ctx context.Context, cfg Config, op Operation) error {
	cfg = cfg.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.BaseDelay
	bo.MaxInterval = cfg.MaxDelay
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0

	attempt := func() error {
		attemptCtx, cls := context.WithTimeout(ctx, cfg.AttemptTimeout)
		defer cls()
		return op(attemptCtx)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.MaxRetries)), ctx)
	return backoff.Retry(attempt, policy)
}
