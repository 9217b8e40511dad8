package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// BackoffFactor is the multiplier applied to backoff after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64

	// RetryableFunc optionally overrides the default retryability check.
	RetryableFunc func(error) bool

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetry is used for idempotent backend calls.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{
	MaxAttempts: 1,
}

// RetryResult contains the result of a retry operation.
type RetryResult[T any] struct {
	Value    T
	Err      error
	Attempts int
	Duration time.Duration
}

// WithRetryContext executes fn with retries, respecting context cancellation.
// Non-retryable errors are returned after the first attempt.
func WithRetryContext[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func(context.Context) (T, error),
) RetryResult[T] {
	start := time.Now()
	backoff := cfg.InitialBackoff
	var lastErr error

	isRetryable := cfg.RetryableFunc
	if isRetryable == nil {
		isRetryable = IsRetryable
	}
	attempts := max(cfg.MaxAttempts, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return RetryResult[T]{
				Err:      &CategorizedError{Err: err, Category: CategoryPermanent, Context: "context cancelled"},
				Attempts: attempt,
				Duration: time.Since(start),
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return RetryResult[T]{
				Value:    result,
				Attempts: attempt + 1,
				Duration: time.Since(start),
			}
		}

		lastErr = err

		if !isRetryable(err) {
			return RetryResult[T]{
				Err:      err,
				Attempts: attempt + 1,
				Duration: time.Since(start),
			}
		}

		if attempt < attempts-1 {
			sleep := calculateBackoff(backoff, cfg.Jitter)
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt+1, sleep, err)
			}
			select {
			case <-ctx.Done():
				return RetryResult[T]{
					Err:      &CategorizedError{Err: ctx.Err(), Category: CategoryPermanent, Context: "context cancelled during backoff"},
					Attempts: attempt + 1,
					Duration: time.Since(start),
				}
			case <-time.After(sleep):
			}

			backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
			if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
				backoff = cfg.MaxBackoff
			}
		}
	}

	return RetryResult[T]{
		Err: &CategorizedError{
			Err:      lastErr,
			Category: Categorize(lastErr),
			Retries:  attempts,
			Context:  "max retries exceeded",
		},
		Attempts: attempts,
		Duration: time.Since(start),
	}
}

// calculateBackoff returns base adjusted by up to +/- jitter.
func calculateBackoff(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	jitterAmount := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + jitterAmount)
}

// RetryOption configures retry behavior.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxAttempts = n }
}

// WithInitialBackoff sets the initial backoff duration.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.InitialBackoff = d }
}

// WithMaxBackoff sets the maximum backoff duration.
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) { cfg.MaxBackoff = d }
}

// WithJitter sets the jitter factor.
func WithJitter(j float64) RetryOption {
	return func(cfg *RetryConfig) { cfg.Jitter = j }
}

// WithOnRetry sets a callback run before each backoff.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) RetryOption {
	return func(cfg *RetryConfig) { cfg.OnRetry = fn }
}

// NewRetryConfig creates a retry configuration from DefaultRetry and opts.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := DefaultRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
