package application

import (
	"context"
	"fmt"
	"time"
)

// pollUntil runs fn immediately and then once per interval until fn reports
// done, the context is canceled, or timeout elapses. Errors from fn are
// treated as transient and retried on the next tick; the last one is attached
// to the deadline error for diagnostics. This is the system's only suspension
// point besides network I/O: both run-identity discovery and run monitoring
// are built on it, which keeps every polling loop bounded.
func pollUntil[T any](ctx context.Context, interval, timeout time.Duration, fn func(context.Context) (T, bool, error)) (T, error) {
	var zero T

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		v, done, err := fn(ctx)
		if err != nil {
			lastErr = err
		} else if done {
			return v, nil
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-deadline.C:
			if lastErr != nil {
				return zero, fmt.Errorf("%w (last attempt: %v)", errPollDeadline, lastErr)
			}
			return zero, errPollDeadline
		case <-ticker.C:
		}
	}
}
