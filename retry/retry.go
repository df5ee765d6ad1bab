// Package retry implements a bounded exponential backoff policy for
// calls to external services.
package retry

import (
	"context"
	"time"
)

type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultPolicy bounds external calls to 3 attempts with exponential
// backoff starting at 500ms.
var DefaultPolicy = Policy{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	Multiplier:   2,
	MaxDelay:     10 * time.Second,
}

// DelayBefore returns the delay to wait before the given attempt,
// attempts are numbered starting at 1. The first attempt never waits.
func (p Policy) DelayBefore(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := p.InitialDelay
	for i := 2; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Do invokes op until it succeeds, returns a non-retryable error or the
// policy's attempt budget is exhausted. retryable decides whether an
// error is worth another attempt.
func Do(ctx context.Context, p Policy, retryable func(error) bool, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := p.DelayBefore(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
	}
	return err
}
