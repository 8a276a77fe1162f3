// Package retry provides the bounded retry policy used by every polling and
// acquisition step: a fixed attempt budget, a sleep between attempts, and an
// optional backoff multiplier.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retried probe. Immutable; construct one per call site.
type Policy struct {
	Attempts int           // total probe invocations, minimum 1
	Delay    time.Duration // sleep between attempts
	Backoff  float64       // multiplies the delay after each failure when > 1
}

// ExhaustedError reports that every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs probe until it succeeds or the policy is exhausted. The first
// success wins. Exhaustion returns an ExhaustedError carrying the attempt
// count and the last probe error. Cancellation interrupts the sleep between
// attempts and surfaces as the context's error; it never interrupts a probe
// already in flight.
func (p Policy) Do(ctx context.Context, probe func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.Delay
	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if p.Backoff > 1 {
				delay = time.Duration(float64(delay) * p.Backoff)
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := probe(ctx)
		if err == nil {
			return nil
		}
		last = err
	}
	return &ExhaustedError{Attempts: attempts, Last: last}
}
