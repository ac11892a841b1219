// Package retry runs an operation again with exponentially growing pauses
// until it succeeds, gives up, or its context ends.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Config holds the configuration for exponential backoff retry logic.
type Config struct {
	// MaxRetries is the maximum number of retry attempts.
	// Set to -1 for unlimited retries.
	MaxRetries int

	// InitialBackoff is the duration to wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum duration to wait between retries.
	MaxBackoff time.Duration

	// Multiplier is the factor by which the backoff duration increases after each retry.
	Multiplier float64

	// Jitter spreads each pause by up to 25% in either direction.
	Jitter bool

	// OnRetry, if set, is called after a failed attempt with the pause
	// that follows it.
	OnRetry func(attempt int, err error, next time.Duration)
}

// Operation is a function that will be retried until it returns nil.
type Operation func(ctx context.Context) error

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// WithExponentialBackoff executes op until it succeeds. It returns the last
// error once the retries are used up, op returned a Permanent error, or ctx
// is done.
func WithExponentialBackoff(ctx context.Context, cfg Config, op Operation) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if cfg.MaxRetries >= 0 && attempt > cfg.MaxRetries {
			return fmt.Errorf("operation failed after %d attempts: %w", attempt, err)
		}

		backoff := calculateBackoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("operation canceled after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}
}

// calculateBackoff returns the pause after the given failed attempt:
// InitialBackoff * Multiplier^(attempt-1), capped at MaxBackoff.
func calculateBackoff(attempt int, cfg Config) time.Duration {
	if attempt <= 0 {
		return 0
	}

	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	backoff := float64(cfg.InitialBackoff) * math.Pow(multiplier, float64(attempt-1))
	if cfg.MaxBackoff > 0 && backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	duration := time.Duration(backoff)
	if cfg.Jitter {
		spread := float64(duration) * 0.25
		duration = time.Duration(float64(duration) + (rand.Float64()*2-1)*spread)
		if cfg.MaxBackoff > 0 && duration > cfg.MaxBackoff {
			duration = cfg.MaxBackoff
		}
		if duration < 0 {
			duration = 0
		}
	}

	return duration
}
