// Package poll provides the suspend-until-condition primitive used to wait
// for page state: a predicate is evaluated at a fixed cadence until it
// reports a hit or a timeout elapses.
package poll

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Predicate checks for a condition. It returns the found value and true on a
// hit. Predicates must not block for longer than the poll interval.
type Predicate[T any] func(ctx context.Context) (T, bool)

// Result is the outcome of Until. A timeout is a valid negative outcome,
// signalled by Found == false, not an error.
type Result[T any] struct {
	Value    T
	Found    bool
	Elapsed  time.Duration
	Attempts int
}

// Until evaluates pred immediately and then once per interval until it
// reports a hit or timeout elapses. The first hit is returned and polling
// stops at once. On timeout Until returns only after the timeout has fully
// elapsed and never evaluates pred again. Cancelling ctx ends the poll early
// with Found == false.
func Until[T any](ctx context.Context, interval, timeout time.Duration, pred Predicate[T]) Result[T] {
	start := time.Now()
	var res Result[T]

	if interval <= 0 {
		interval = time.Millisecond
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Burst of one: the first token is available immediately, every later
	// one arrives a full interval after the previous.
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := limiter.Wait(pollCtx); err != nil {
			// Wait fails fast when the next token lies past the deadline.
			// Sit out the remainder so callers observe the full timeout.
			if ctx.Err() == nil {
				<-pollCtx.Done()
			}
			break
		}
		if pollCtx.Err() != nil {
			break
		}

		res.Attempts++
		if v, ok := pred(pollCtx); ok {
			res.Value = v
			res.Found = true
			break
		}
	}

	res.Elapsed = time.Since(start)
	return res
}

// Settle pauses for d, the fixed delay that lets asynchronous rendering
// finish after a UI action. It returns ctx.Err() if ctx ends first.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
