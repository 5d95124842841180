// Package retry provides the fixed-delay retry policy wrapped around the
// registry's flaky external-connection association call.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy is a fixed-delay retry schedule. No backoff growth, no jitter,
// and no classification of retryable errors: every failure is retried
// identically until the attempts are exhausted.
type Policy struct {
	// Attempts is the total number of invocations, including the first.
	Attempts int

	// Delay is the fixed wait between consecutive attempts.
	Delay time.Duration
}

// Default is the policy used for registry provisioning: 3 retries after
// the initial attempt, 500ms apart.
var Default = Policy{
	Attempts: 4,
	Delay:    500 * time.Millisecond,
}

// Do invokes fn until it succeeds or p.Attempts invocations have failed,
// waiting p.Delay between attempts. The last failure is returned once
// the attempts are exhausted. A context cancellation during the wait
// stops retrying and returns the last failure joined with the context's
// error.
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return zero, errors.Join(lastErr, ctx.Err())
			case <-time.After(p.Delay):
			}
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
