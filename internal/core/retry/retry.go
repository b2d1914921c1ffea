// Package retry re-runs operations that fail with transient errors,
// waiting an exponentially growing delay between attempts.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/metrics"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"` // 0 = uncapped
}

// DefaultConfig provides the defaults used across the storefront.
var DefaultConfig = Config{
	MaxAttempts: 5,
	BaseDelay:   1 * time.Second,
	MaxDelay:    60 * time.Second,
}

// Attempt describes a retry that is about to be scheduled.
type Attempt struct {
	Operation string
	Number    int // 1-based number of the attempt that failed
	Delay     time.Duration
	Err       error
}

// Option configures an Executor.
type Option func(*Executor)

// WithOnRetry registers a hook called before every backoff wait.
func WithOnRetry(fn func(Attempt)) Option {
	return func(e *Executor) {
		e.onRetry = fn
	}
}

// WithLogger overrides the logger used for retry diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		e.log = log
	}
}

// Executor runs operations with exponential backoff.
type Executor struct {
	cfg     Config
	onRetry func(Attempt)
	log     *slog.Logger
}

// NewExecutor creates an executor. Zero fields in cfg fall back to DefaultConfig.
func NewExecutor(cfg Config, opts ...Option) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig.BaseDelay
	}
	e := &Executor{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the executor configuration.
func (e *Executor) Config() Config {
	return e.cfg
}

var defaultExecutor = NewExecutor(DefaultConfig)

// Do runs fn with the default executor.
func Do(ctx context.Context, name string, maxAttempts int, fn func(context.Context) error) error {
	return defaultExecutor.Do(ctx, name, maxAttempts, fn)
}

// Execute runs fn with the default executor and returns its value.
func Execute[T any](
	ctx context.Context,
	name string,
	maxAttempts int,
	fn func(context.Context) (T, error),
) (T, error) {
	return ExecuteWith(ctx, defaultExecutor, name, maxAttempts, fn)
}

// ExecuteWith runs fn with e and returns its value.
func ExecuteWith[T any](
	ctx context.Context,
	e *Executor,
	name string,
	maxAttempts int,
	fn func(context.Context) (T, error),
) (T, error) {
	var result T
	err := e.Do(ctx, name, maxAttempts, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// Do invokes fn up to maxAttempts times. A non-transient error is returned
// after the attempt that produced it. When every attempt fails with a
// transient error the last one is returned, wrapped with the attempt count.
// maxAttempts below 1 means a single attempt.
func (e *Executor) Do(
	ctx context.Context,
	name string,
	maxAttempts int,
	fn func(context.Context) error,
) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		attempt   int
		lastErr   error
		exhausted bool
	)

	backoff := goretry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= maxAttempts {
			exhausted = true
			return 0, true
		}
		delay := Backoff(attempt-1, e.cfg)

		metrics.RetryAttempts.WithLabelValues(name).Inc()
		e.log.Warn("Retrying operation",
			"operation", name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", lastErr,
		)
		if e.onRetry != nil {
			e.onRetry(Attempt{Operation: name, Number: attempt, Delay: delay, Err: lastErr})
		}
		return delay, false
	})

	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) {
			return err
		}
		return goretry.RetryableError(err)
	})

	if err != nil && exhausted {
		metrics.RetryExhausted.WithLabelValues(name).Inc()
		e.log.Error("Operation failed after retries",
			"operation", name,
			"attempts", attempt,
			"error", err,
		)
		return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
	}
	return err
}

// Backoff returns the wait after the failed attempt with the given 0-based index.
func Backoff(attempt int, cfg Config) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
