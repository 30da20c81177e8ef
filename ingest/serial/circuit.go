package serial

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// RetryConfig configures the reconnect backoff used when a serial read
// session ends in error.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultRetryConfig returns the reconnect backoff used when none is given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    5,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// RetryHandler retries a fallible operation with exponential backoff.
type RetryHandler struct {
	cfg RetryConfig
}

// NewRetryHandler builds a RetryHandler for cfg.
func NewRetryHandler(cfg RetryConfig) *RetryHandler {
	return &RetryHandler{cfg: cfg}
}

// Retry runs operation, retrying on transient errors (a device temporarily
// unplugged, a USB enumeration race) up to MaxRetries times.
func (rh *RetryHandler) Retry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= rh.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == rh.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rh.delay(attempt)):
		}
	}

	return fmt.Errorf("max retries (%d) exceeded, last error: %w", rh.cfg.MaxRetries, lastErr)
}

func (rh *RetryHandler) delay(attempt int) time.Duration {
	delay := float64(rh.cfg.InitialDelay) * math.Pow(rh.cfg.BackoffFactor, float64(attempt))
	if delay > float64(rh.cfg.MaxDelay) {
		delay = float64(rh.cfg.MaxDelay)
	}
	if rh.cfg.Jitter {
		delay += delay * 0.1 * (rand.Float64() - 0.5)
	}
	return time.Duration(delay)
}

var retryableSubstrings = []string{
	"connection refused",
	"timeout",
	"temporary failure",
	"device not configured",
	"no such file or directory",
	"resource busy",
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// CircuitBreakerConfig configures when the breaker opens and how long it
// stays open before probing again.
type CircuitBreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultCircuitBreakerConfig returns the breaker settings used when none
// are given.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
	}
}

type circuitState string

const (
	circuitClosed   circuitState = "closed"
	circuitOpen     circuitState = "open"
	circuitHalfOpen circuitState = "half_open"
)

// CircuitBreaker stops hammering a serial device that is consistently
// failing to open, instead of retrying forever after repeated connection
// failures.
type CircuitBreaker struct {
	cfg             CircuitBreakerConfig
	mu              sync.Mutex
	state           circuitState
	failureCount    int
	lastFailureTime time.Time
}

// NewCircuitBreaker builds a CircuitBreaker for cfg.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: circuitClosed}
}

// Execute runs operation if the breaker currently allows it, and records
// the outcome.
func (cb *CircuitBreaker) Execute(operation func() error) error {
	if !cb.canExecute() {
		return fmt.Errorf("circuit breaker open, rejecting connection attempt")
	}

	err := operation()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.failureCount++
		cb.lastFailureTime = time.Now()
		if cb.state == circuitHalfOpen || cb.failureCount >= cb.cfg.FailureThreshold {
			cb.state = circuitOpen
		}
		return err
	}

	cb.state = circuitClosed
	cb.failureCount = 0
	return nil
}

func (cb *CircuitBreaker) canExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.cfg.RecoveryTimeout {
			cb.state = circuitHalfOpen
			return true
		}
		return false
	case circuitHalfOpen:
		return true
	default:
		return false
	}
}
