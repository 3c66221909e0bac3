// Package retry wraps AI gateway calls in exponential backoff. Rate limits
// and transient upstream failures are retried; quota and validation errors
// surface immediately.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	ferrors "github.com/darkmc/plugin-forge/internal/errors"
)

// Config bounds the backoff schedule.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultConfig is tuned for gateway completions: three attempts keeps a
// flaky model call under the browser's patience for a streaming request.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or exhausts
// the attempt budget. Delays double per attempt up to MaxDelay, with jitter
// so concurrent sandboxes do not re-hit the gateway in lockstep.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !ferrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt)))
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		if cfg.Jitter {
			delay = time.Duration(float64(delay) * (0.5 + rand.Float64()*0.5))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
