// AngelaMos | 2026
// retry.go

package gemini

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy retries request initiation with linear backoff: the wait
// before attempt n+1 is Delay*n.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
	Sleep       func(ctx context.Context, d time.Duration) error
}

func NewRetryPolicy(maxAttempts int, delay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Retryable:   IsRetryable,
		Sleep:       SleepContext,
	}
}

func Do[T any](
	ctx context.Context,
	p RetryPolicy,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var zero T
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts || !retryable(err) {
			break
		}

		wait := p.Delay * time.Duration(attempt)
		slog.Warn("gemini request failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"wait", wait,
			"error", err,
		)

		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
