// Package retrypolicy implements the single deterministic retry helper
// shared by the Provider Runtime, the Embedding Provider, and the
// Indexing Pipeline.
//
// Unlike a general-purpose exponential-backoff helper this has no jitter
// and returns the last error verbatim once retries are exhausted: callers
// (in particular ProviderError.RetryExhausted) need the original error,
// not a wrapped one.
package retrypolicy

import (
	"context"
	"time"
)

// Policy configures the delay sequence: it starts at InitialDelay,
// multiplies by Multiplier each step, and is clamped to MaxDelay.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultPolicy mirrors the Provider Runtime's retry defaults: base delay
// 1s doubling up to 30s, three retries.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
	}
}

// Delays returns the full delay sequence for this policy: one entry per
// retry attempt, in order, already clamped to MaxDelay.
func (p Policy) Delays() []time.Duration {
	delays := make([]time.Duration, 0, p.MaxRetries)
	delay := p.InitialDelay
	for i := 0; i < p.MaxRetries; i++ {
		d := delay
		if d > p.MaxDelay {
			d = p.MaxDelay
		}
		delays = append(delays, d)
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	return delays
}

// ShouldRetry decides whether an error is retriable. Nil means "retry
// everything" (the default used by With when no predicate is supplied).
type ShouldRetry func(error) bool

// With runs op, retrying on error per the policy's delay sequence. On the
// attempt that exhausts retries it returns the last error from op
// verbatim — never wrapped — so callers can type-assert or errors.As it.
// If shouldRetry is non-nil and returns false for a given error, With
// returns that error immediately without consuming further attempts.
func With(ctx context.Context, p Policy, shouldRetry ShouldRetry, op func(ctx context.Context) error) error {
	delays := p.Delays()
	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt >= len(delays) {
			return lastErr
		}

		timer := time.NewTimer(delays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
