// Package retry runs a call a bounded number of times, sleeping between attempts.
package retry

import (
	"context"
	"errors"
	"time"
)

// Backoff returns how long to wait after the given failed attempt (1-based).
type Backoff func(attempt int) time.Duration

// Linear waits attempt*step: step, 2*step, 3*step...
func Linear(step time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

type Options struct {
	Attempts int
	Backoff  Backoff
	// OnRetry is called before sleeping after a failed, non-final attempt.
	OnRetry func(attempt int, err error)
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts run out or ctx is done.
// It returns the number of attempts made and the last error.
func Do(ctx context.Context, opts Options, fn func(ctx context.Context) error) (int, error) {
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return attempt, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return attempt, perm.err
		}

		if attempt == attempts {
			return attempt, err
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}

		var wait time.Duration
		if opts.Backoff != nil {
			wait = opts.Backoff(attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			return attempt, err
		}
	}

	return attempts, err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
