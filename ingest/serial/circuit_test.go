package serial

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, RecoveryTimeout: time.Minute})

	failing := func() error { return errors.New("connection refused") }

	for i := 0; i < 3; i++ {
		if err := cb.Execute(failing); err == nil {
			t.Fatalf("attempt %d: expected failure to propagate", i)
		}
	}

	if err := cb.Execute(func() error { return nil }); err == nil {
		t.Fatal("expected circuit breaker to reject calls once open")
	}
}

func TestCircuitBreakerClosesOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	if err := cb.Execute(func() error { return errors.New("timeout") }); err == nil {
		t.Fatal("expected the injected failure to propagate")
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected success to clear the failure count: %v", err)
	}
	if cb.state != circuitClosed {
		t.Errorf("state = %v, want closed", cb.state)
	}
}

func TestCircuitBreakerRecoversAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond})

	if err := cb.Execute(func() error { return errors.New("timeout") }); err == nil {
		t.Fatal("expected failure")
	}
	if err := cb.Execute(func() error { return nil }); err == nil {
		t.Fatal("expected the breaker to still be open immediately after opening")
	}

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected the breaker to allow a probe call after the recovery timeout: %v", err)
	}
}

func TestRetryHandlerStopsOnNonRetryableError(t *testing.T) {
	rh := NewRetryHandler(RetryConfig{MaxRetries: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1})

	attempts := 0
	err := rh.Retry(context.Background(), func() error {
		attempts++
		return errors.New("permission denied")
	})
	if err == nil {
		t.Fatal("expected the non-retryable error to propagate")
	}
	if attempts != 1 {
		t.Errorf("expected exactly one attempt for a non-retryable error, got %d", attempts)
	}
}

func TestRetryHandlerRetriesTransientErrors(t *testing.T) {
	rh := NewRetryHandler(RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1})

	attempts := 0
	err := rh.Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryHandlerRespectsContextCancellation(t *testing.T) {
	rh := NewRetryHandler(RetryConfig{MaxRetries: 10, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rh.Retry(ctx, func() error { return errors.New("timeout") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
