// pkg/retry/retry.go - functions for retrying actions with exponential backoff.

package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/windowsadmins/installcheck/pkg/logging"
)

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err so Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// RetryConfig defines the configuration for retry attempts
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
}

// DefaultConfig is a short backoff suited to local system queries.
func DefaultConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2,
	}
}

// Retry retries action with exponential backoff until it succeeds, the
// attempts are exhausted, or ctx is done. The last error is wrapped in the result.
func Retry(ctx context.Context, config RetryConfig, action func() error) error {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	interval := config.InitialInterval
	var lastErr error

	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		err := action()
		if err == nil {
			return nil
		}
		lastErr = err

		var p permanent
		if errors.As(err, &p) {
			logging.LogStructured(logging.LevelDebug, "Non-retryable error encountered", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return err
		}

		if attempt == config.MaxRetries {
			break
		}
		logging.LogStructured(logging.LevelDebug, fmt.Sprintf("Attempt %d/%d failed, retrying", attempt, config.MaxRetries), map[string]interface{}{
			"error":       err.Error(),
			"retry_delay": interval.String(),
		})

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
		if config.Multiplier > 0 {
			interval = time.Duration(float64(interval) * config.Multiplier)
		}
	}

	return fmt.Errorf("action failed after %d attempts: %w", config.MaxRetries, lastErr)
}
