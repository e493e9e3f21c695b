package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds retry configuration
type Config struct {
	Name            string
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration

	// Retryable decides whether an error is worth another attempt. Nil retries everything.
	Retryable func(error) bool

	// OnRetry is called before sleeping between attempts
	OnRetry func(attempt int, err error, nextDelay time.Duration)
}

// DefaultConfig returns the configuration used when dialing backing services
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		MaxAttempts:     10,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 60 * time.Second,
	}
}

// TransactionConfig returns a short schedule for re-running aborted transactions
func TransactionConfig(retryable func(error) bool) Config {
	return Config{
		Name:          "transaction",
		MaxAttempts:   3,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      100 * time.Millisecond,
		BackoffFactor: 2.0,
		Retryable:     retryable,
	}
}

// Do executes fn with exponential backoff until it succeeds, returns a
// non-retryable error, or the attempts or total timeout run out.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return cfg.wrap(fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempt-1, err, lastErr))
			}
			return cfg.wrap(fmt.Errorf("retry aborted: %w", err))
		}

		err := fn()
		if err == nil {
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}

		lastErr = err
		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return cfg.wrap(fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempt, ctx.Err(), lastErr))
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	if cfg.Retryable != nil {
		// callers that classify errors get the last error back unchanged
		return lastErr
	}
	return cfg.wrap(fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr))
}

func (c Config) wrap(err error) error {
	if c.Name == "" {
		return err
	}
	return fmt.Errorf("%s: %w", c.Name, err)
}
