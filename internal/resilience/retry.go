package resilience

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig bounds a [Retry] loop. Zero fields take defaults.
type RetryConfig struct {
	// Attempts is the total number of calls, including the first.
	// Default 3.
	Attempts int

	// Backoff is the wait before the second attempt; it doubles after each
	// failure. Default 500ms.
	Backoff time.Duration
}

// Retry calls fn until it succeeds, attempts are exhausted, or ctx ends.
// Context errors abort immediately without further attempts.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	var err error
	backoff := cfg.Backoff
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt >= cfg.Attempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("resilience: %d attempts failed: %w", cfg.Attempts, err)
}
