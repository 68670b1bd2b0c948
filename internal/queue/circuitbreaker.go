package queue

import (
	"sync"
	"time"
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker guards the AI Gateway from being hammered with requests
// once it starts failing consistently (e.g. the API key is invalid, or
// the service is down): after threshold consecutive failures it opens and
// rejects calls until resetTimeout elapses, then allows one probe through
// (half-open) before fully closing again.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        circuitState
	failures     int64
	threshold    int64
	openedAt     time.Time
	resetTimeout time.Duration
}

// NewCircuitBreaker builds a breaker that opens after threshold
// consecutive failures and probes again after resetTimeout.
func NewCircuitBreaker(threshold int64, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{threshold: threshold, resetTimeout: resetTimeout}
}

// Allow reports whether a call should proceed. An open breaker that has
// outlived resetTimeout transitions itself to half-open and lets exactly
// the call that discovers this through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitHalfOpen:
		return false
	}
	if time.Since(cb.openedAt) < cb.resetTimeout {
		return false
	}
	cb.state = circuitHalfOpen
	return true
}

// RecordSuccess resets the breaker to closed.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = circuitClosed
}

// RecordFailure counts a failure, opening the breaker once threshold is hit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.failures >= cb.threshold {
		cb.state = circuitOpen
		cb.openedAt = time.Now()
	}
}

// State returns the breaker's current state as a string.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state.String()
}
