package fn

import (
	"context"
	"time"
)

// RetryOpts configures Retry.
type RetryOpts struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the wait before the first retry; it doubles each attempt.
	Delay time.Duration
}

// Retry runs f up to opts.Attempts times with exponential backoff,
// returning the last error if every attempt fails. Context cancellation
// aborts the wait between attempts.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) (T, error)) (T, error) {
	var zero T
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	delay := opts.Delay

	var lastErr error
	for i := 0; i < opts.Attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		v, err := f(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
