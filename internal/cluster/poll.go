package cluster

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// errPending marks an observation that is not final yet.
var errPending = errors.New("not finished")

// transientExhaustedError is returned once consecutive transient failures
// exceed the tolerated count.
type transientExhaustedError struct {
	attempts int
	err      error
}

func (e *transientExhaustedError) Error() string { return e.err.Error() }

func (e *transientExhaustedError) Unwrap() error { return e.err }

type pollSettings struct {
	interval     time.Duration
	maxInterval  time.Duration
	maxTransient int
	// timeout of zero polls until the context ends.
	timeout time.Duration
}

// poll calls check until it returns a value, a permanent error, or the
// ceiling is reached. check returns errPending while the remote resource is
// still progressing; any other non-permanent error counts as a transient
// failure, and consecutive transient failures beyond maxTransient stop the
// loop with a *transientExhaustedError. On timeout the last error is
// returned, which is errPending if the resource never settled.
func poll[T any](ctx context.Context, s pollSettings, logger *slog.Logger, phase string, check func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.interval
	b.MaxInterval = s.maxInterval
	b.RandomizationFactor = 0.2

	failures := 0
	op := func() (T, error) {
		v, err := check(ctx)
		var permanent *backoff.PermanentError
		switch {
		case err == nil:
			return v, nil
		case errors.Is(err, errPending):
			failures = 0
			return v, err
		case errors.As(err, &permanent):
			return v, err
		}
		failures++
		if failures > s.maxTransient {
			return v, backoff.Permanent(&transientExhaustedError{attempts: failures, err: err})
		}
		logger.Warn("transient poll failure", "phase", phase, "attempt", failures, "error", err)
		return v, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(s.timeout),
	)
}
