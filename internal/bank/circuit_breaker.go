package bank

import (
	"sync"
	"time"
)

// breakerState is the classic three-state circuit breaker.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreaker is a rolling-window failure counter shared across all
// requests to the bank client. It has no teacher equivalent (the
// teacher's retry wrapper has none); grounded on
// saeedeldeeb-easy-orders-backend-golang-task-2025/pkg/payments/circuit_breaker.go's
// closed/open/half-open state machine, and on
// ROks-fin-Deltran-MVP/gateway-go/internal/resilience/circuit_breaker.go's
// rolling-window count reset on an interval while closed.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	window           time.Duration
	cooldown         time.Duration

	state            breakerState
	failures         int
	windowStartedAt  time.Time
	openedAt         time.Time
}

// NewCircuitBreaker builds a breaker that trips after failureThreshold
// failures observed within window, and waits cooldown before moving to
// half-open.
func NewCircuitBreaker(failureThreshold int, window, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		window:           window,
		cooldown:         cooldown,
		state:            stateClosed,
		windowStartedAt:  time.Now(),
	}
}

// Allow reports whether a call may proceed. When the breaker is open
// and the cooldown has elapsed, it transitions to half-open. A half-open
// breaker allows every call until the next RecordSuccess closes it or
// the next RecordFailure reopens it; the number of calls let through
// while half-open is not limited.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		if time.Since(cb.windowStartedAt) > cb.window {
			cb.failures = 0
			cb.windowStartedAt = time.Now()
		}
		return true
	case stateOpen:
		if time.Since(cb.openedAt) >= cb.cooldown {
			cb.state = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess closes the breaker and resets its counters.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = stateClosed
	cb.failures = 0
	cb.windowStartedAt = time.Now()
}

// RecordFailure counts a failure and trips the breaker open once the
// threshold is reached within the rolling window (or immediately, if
// the trial half-open call itself failed).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == stateHalfOpen {
		cb.open()
		return
	}

	if time.Since(cb.windowStartedAt) > cb.window {
		cb.failures = 0
		cb.windowStartedAt = time.Now()
	}
	cb.failures++
	if cb.failures >= cb.failureThreshold {
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = stateOpen
	cb.openedAt = time.Now()
	cb.failures = 0
}

// IsOpen reports the current state without side effects, for logging.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state == stateOpen
}
