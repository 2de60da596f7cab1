package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNetwork marks connection failures to a remote backend (Redis,
	// MongoDB). Wrapped with Retryable when the failure is transient.
	ErrNetwork = errors.New("network error")

	// ErrCacheMiss is returned by GetJSON when the key is absent.
	ErrCacheMiss = errors.New("cache miss")
)

// RetryableError marks a transient failure worth retrying.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff is an exponential retry schedule.
type Backoff struct {
	Attempts int           // total calls, including the first
	Delay    time.Duration // wait before the second call, doubled after each
	Max      time.Duration // cap on a single wait; zero means no cap
}

// DefaultBackoff is the schedule of [RetryWithBackoff].
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second, Max: 10 * time.Second}

// Retry calls fn until it succeeds, returns an error not marked with
// [Retryable], or the attempts are used up. The last error is returned.
// Waiting stops with ctx.Err() when ctx is done.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	delay := b.Delay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) || attempt >= b.Attempts {
			return err
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
}

// RetryWithBackoff retries fn on the [DefaultBackoff] schedule.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultBackoff.Retry(ctx, fn)
}
