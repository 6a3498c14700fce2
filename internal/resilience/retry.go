// Package resilience keeps the pipeline's provider calls alive through
// transient trouble: bounded retries with backoff around an individual model
// or storage call, and a per-provider circuit breaker so a dead provider
// stops eating the batch's time budget.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds how hard one call is retried.
type RetryConfig struct {
	// MaxAttempts counts the first try too; 1 disables retries.
	MaxAttempts int
	// InitialBackoff is the pause before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the growing pause.
	MaxBackoff time.Duration
	// Multiplier grows the pause between consecutive retries.
	Multiplier float64
	// JitterFraction spreads each pause by up to this fraction in either
	// direction, so a batch of failed document calls does not retry in
	// lockstep.
	JitterFraction float64
	// ShouldRetry decides which errors are worth another attempt. Nil means
	// IsTransient.
	ShouldRetry func(err error) bool
	// OnRetry runs before each pause with the number of the attempt that
	// just failed.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig is tuned for model-provider calls: three attempts
// starting at half a second, capped at thirty.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.25,
	}
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

// pause computes the backoff after failed attempt number attempt (1-based).
func (cfg RetryConfig) pause(attempt int) time.Duration {
	d := cfg.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * cfg.Multiplier)
		if d >= cfg.MaxBackoff {
			d = cfg.MaxBackoff
			break
		}
	}
	if cfg.JitterFraction > 0 {
		spread := float64(d) * cfg.JitterFraction
		d += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	if d < 0 {
		d = 0
	}
	return d
}

// DoVal runs fn until it succeeds, the error stops being retryable, the
// attempts run out, or the context ends. The last error seen is returned.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	retryable := cfg.ShouldRetry
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt == cfg.MaxAttempts {
			return zero, err
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		select {
		case <-ctx.Done():
			return zero, err
		case <-time.After(cfg.pause(attempt)):
		}
	}
}

// RetryLogger is the standard OnRetry hook: one warn line per retry naming
// the service and operation.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("transient failure, retrying",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
