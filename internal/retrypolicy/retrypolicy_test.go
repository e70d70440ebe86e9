package retrypolicy

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelaysSequence(t *testing.T) {
	p := Policy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	got := p.Delays()
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(got) != len(want) {
		t.Fatalf("got %d delays, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWithReturnsLastErrorVerbatimAfterExhaustion(t *testing.T) {
	sentinel := errors.New("boom")
	p := Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	calls := 0
	err := With(context.Background(), p, nil, func(ctx context.Context) error {
		calls++
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected verbatim sentinel error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 1 initial + 2 retries = 3 calls, got %d", calls)
	}
}

func TestWithStopsOnNonRetriableError(t *testing.T) {
	sentinel := errors.New("fatal")
	p := DefaultPolicy()
	calls := 0
	err := With(context.Background(), p, func(error) bool { return false }, func(ctx context.Context) error {
		calls++
		return sentinel
	})
	if err != sentinel || calls != 1 {
		t.Fatalf("expected immediate non-retriable return, got err=%v calls=%d", err, calls)
	}
}

func TestWithSucceedsAfterTransientFailures(t *testing.T) {
	p := Policy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	attempts := 0
	err := With(context.Background(), p, nil, func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
}
