package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerTripsAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour)
	boom := errors.New("boom")
	fail := func() error { return boom }

	if err := cb.Execute(fail); !errors.Is(err, boom) {
		t.Fatalf("first failure: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %s, want closed", cb.State())
	}
	if err := cb.Execute(fail); !errors.Is(err, boom) {
		t.Fatalf("second failure: %v", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}
	if err := cb.Execute(fail); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker must short-circuit, got %v", err)
	}
}

func TestCircuitBreakerRecovers(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond)
	cb.Execute(func() error { return errors.New("x") })
	if cb.State() != StateOpen {
		t.Fatalf("state = %s", cb.State())
	}

	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open after cooldown", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %s, want closed after success", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.Execute(func() error { return errors.New("x") })
	time.Sleep(20 * time.Millisecond)
	cb.Execute(func() error { return errors.New("still broken") })
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open again", cb.State())
	}
}

func TestCircuitBreakerStateChangeHook(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Hour)
	var transitions []string
	cb.SetOnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+">"+to.String())
	})
	cb.Execute(func() error { return errors.New("x") })
	if len(transitions) != 1 || transitions[0] != "closed>open" {
		t.Errorf("transitions = %v", transitions)
	}
}

func TestRetrySucceedsMidway(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	calls := 0
	err := RetryWithConfig(context.Background(), cfg, func() error {
		calls++
		if calls < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	boom := errors.New("boom")
	calls := 0
	err := RetryWithConfig(context.Background(), cfg, func() error { calls++; return boom })
	if !errors.Is(err, boom) || calls != 3 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetryHonorsRetryIf(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, RetryIf: func(error) bool { return false }}
	calls := 0
	RetryWithConfig(context.Background(), cfg, func() error { calls++; return errors.New("fatal") })
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 for a non-retryable error", calls)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithConfig(ctx, DefaultRetryConfig(), func() error { return errors.New("x") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
