package fetcher

import (
	"context"
	"errors"
	"time"
)

// TransientError marks a failure that is worth retrying: a network error,
// a 5xx response, or a rate-limit response. Anything else surfaces
// immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// RetryPolicy retries an operation with exponential backoff. The policy is
// a plain value so tests can shrink the delays.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool // defaults to IsTransient
}

// DefaultRetryPolicy matches the production schedule: 3 attempts, 2s base,
// capped at 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    8 * time.Second,
		Retryable:   IsTransient,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, or exhausts
// MaxAttempts. The last error is returned as-is so callers keep the full
// error chain.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil || attempt >= attempts || !retryable(err) {
			return err
		}

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
