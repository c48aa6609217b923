package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is returned once every attempt has failed. The
// last underlying error is wrapped alongside it.
var ErrRetriesExhausted = errors.New("maximum retries exceeded")

// Retry invokes op, and on failure waits interval and reinvokes it, up
// to maxAttempts total invocations. The delay is fixed on purpose: the
// monitored endpoint fails with latency spikes, not overload, so
// backing off buys nothing. Cancellation comes only from ctx, which the
// supervisor owns.
func Retry[T any](ctx context.Context, op func() (T, error), interval time.Duration, maxAttempts int) (T, error) {
	var zero T

	if maxAttempts < 1 {
		return zero, fmt.Errorf("retry: maxAttempts must be at least 1, got %d", maxAttempts)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(interval):
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
}
