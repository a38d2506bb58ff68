// Package retry provides bounded exponential backoff for transient remote lookups.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/tgpurge/internal/logger"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int                                        // Maximum number of attempts (default: 3)
	InitialBackoff time.Duration                              // Initial backoff duration (default: 1s)
	MaxBackoff     time.Duration                              // Maximum backoff duration (default: 10s)
	Retryable      func(error) bool                           // Classifier (default: IsRetryable)
	Sleep          func(context.Context, time.Duration) error // Suspension point (default: Sleep)
	WaitFor        func(error) (time.Duration, bool)          // Server-requested wait, replaces the backoff when ok
	Logger         *logger.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialDelay
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxDelay
	}
	if c.Retryable == nil {
		c.Retryable = IsRetryable
	}
	if c.Sleep == nil {
		c.Sleep = Sleep
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	return c
}

// Do executes fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. Context cancellation is checked between attempts.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.Retryable(err) {
			return zero, err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		backoff := calculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff)
		if cfg.WaitFor != nil {
			if wait, ok := cfg.WaitFor(err); ok {
				backoff = wait
			}
		}
		cfg.Logger.Debug("retrying after transient error",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "max_attempts", Value: cfg.MaxAttempts},
			logger.Field{Key: "backoff", Value: backoff.String()},
			logger.Field{Key: "error", Value: err.Error()})

		if err := cfg.Sleep(ctx, backoff); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// Sleep suspends for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable checks if an error looks transient based on its message.
// Returns true for timeout and network errors; false for cancellation,
// authorization and not-found errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errLower := strings.ToLower(err.Error())

	nonRetryablePatterns := []string{
		"401",
		"403",
		"400",
		"404",
		"not found",
		"context canceled",
	}
	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(errLower, pattern) {
			return false
		}
	}

	retryablePatterns := []string{
		"deadline exceeded",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"eof",
		"network",
		"internal server error",
		"rpc_call_fail",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errLower, pattern) {
			return true
		}
	}

	return false
}

// calculateBackoff calculates the backoff duration for a given attempt:
// 2^attempt * initial, capped at max.
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > max || backoff <= 0 {
		return max
	}
	return backoff
}
