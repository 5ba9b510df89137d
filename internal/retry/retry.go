package retry

import (
	"context"
	"fmt"
	"time"
)

// Func defines the function signature for a retryable operation.
type Func func(ctx context.Context) error

// Config defines the configuration for the retry mechanism.
type Config struct {
	Attempts int           // total attempts, including the first
	Delay    time.Duration // delay before the first retry
	MaxDelay time.Duration // cap for the growing delay; zero means no cap
}

// Execute performs an operation with retries and exponential backoff.
// A nil config or non-positive attempt count runs the operation once.
func Execute(ctx context.Context, cfg *Config, op Func) error {
	if cfg == nil || cfg.Attempts <= 1 {
		return op(ctx)
	}

	var lastErr error
	delay := cfg.Delay

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := op(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("exhausted %d attempts: %w", cfg.Attempts, lastErr)
}
