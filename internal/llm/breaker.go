package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"resume-optimizer/internal/shared/telemetry"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("llm circuit open")

// BreakerSettings tunes the breaker.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	Interval            time.Duration
}

// DefaultBreakerSettings trips after 5 consecutive transient failures and
// probes again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second, Interval: time.Minute}
}

// Breaker stops calling a failing provider for a while. Only transient
// errors count as failures.
type Breaker struct {
	base Client
	cb   *gobreaker.CircuitBreaker[string]
}

// NewBreaker wraps base.
func NewBreaker(base Client, name string, s BreakerSettings) *Breaker {
	threshold := s.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("llm-%s", name),
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !ShouldRetry(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			telemetry.Warn("llm.breaker_state", map[string]any{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	}
	return &Breaker{base: base, cb: gobreaker.NewCircuitBreaker[string](settings)}
}

// Complete calls the wrapped client through the breaker.
func (b *Breaker) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (string, error) {
		return b.base.Complete(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return out, err
}

// State returns the breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
