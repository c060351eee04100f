package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig bounds retries of a reasoning-backend call. The attempts all
// live inside the caller's context deadline; once that expires the pipeline
// falls back to its deterministic default plan.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // 0..1 fraction of the delay randomized
	RetryIf      func(error) bool
}

// DefaultRetryConfig keeps backend retries short: two extra attempts with a
// small backoff.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// RetryWithConfig executes fn until it succeeds, attempts run out, the error
// is deemed non-retryable, or the context is done.
func RetryWithConfig(ctx context.Context, cfg *RetryConfig, fn func() error) error {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if cfg.RetryIf != nil && !cfg.RetryIf(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered(delay, cfg.Jitter)):
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}

func jittered(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	span := float64(d) * frac
	return d + time.Duration((rand.Float64()*2-1)*span)
}
