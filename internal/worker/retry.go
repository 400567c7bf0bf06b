package worker

import (
	"context"
	"errors"
	"time"
)

// retrySleepFunc waits between attempts (injectable for tests)
var retrySleepFunc = sleepContext

// RetryPolicy is an exponential backoff policy: attempt n (0-based) is
// followed by a wait of BaseDelay * 2^n.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy returns three retries starting at one second
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}
}

// Backoff returns the wait after the given failed attempt
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<uint(attempt))
}

// WithRetry calls op, retrying up to MaxRetries additional times. The last
// error is returned once attempts are exhausted. Permanent errors and
// context cancellation stop the loop immediately.
func WithRetry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		out     T
		lastErr error
	)

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if IsPermanent(err) || ctx.Err() != nil {
			break
		}

		if attempt < p.MaxRetries {
			if sleepErr := retrySleepFunc(ctx, p.Backoff(attempt)); sleepErr != nil {
				break
			}
		}
	}

	return out, unwrapPermanent(lastErr)
}

// Retry is WithRetry for operations without a result
func Retry(ctx context.Context, p RetryPolicy, op func(ctx context.Context) error) error {
	_, err := WithRetry(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (e.g. HTTP 404)
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

func unwrapPermanent(err error) error {
	if pe, ok := err.(*permanentError); ok {
		return pe.err
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
