// Package retry runs an operation with bounded exponential backoff. It is
// shared by the model and email clients so both follow one policy.
package retry

import (
	"context"
	"time"
)

// Policy configures attempts and backoff. Delay before retry n (1-based) is
// Base * Factor^(n-1), capped at Max.
type Policy struct {
	Attempts int
	Base     time.Duration
	Factor   float64
	Max      time.Duration
	// Sleep waits between attempts. Nil uses a timer that honors ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy is 3 attempts, 500ms base, factor 2, 8s cap.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Base: 500 * time.Millisecond, Factor: 2, Max: 8 * time.Second}
}

// WithAttempts returns p with Attempts replaced when n > 0.
func (p Policy) WithAttempts(n int) Policy {
	if n > 0 {
		p.Attempts = n
	}
	return p
}

// Delay returns the wait before retry n.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 || p.Base <= 0 {
		return 0
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(p.Base)
	for i := 1; i < n; i++ {
		d *= factor
		if p.Max > 0 && d >= float64(p.Max) {
			return p.Max
		}
	}
	if p.Max > 0 && time.Duration(d) > p.Max {
		return p.Max
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns an error retryable rejects, or the
// attempts run out. onRetry, when set, is called before each wait. The last
// error is returned unchanged.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = wait
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || retryable == nil || !retryable(err) {
			return err
		}
		delay := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
	return err
}

func wait(ctx context.Context, d time.Duration) error {
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
