// Package resilience guards calls to the reasoning backend. Envelope sends
// are never retried here; at-most-once delivery is accepted by design.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker refuses calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the state of a CircuitBreaker.
type State int

const (
	// StateClosed passes calls through and counts failures.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets one probe call through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker trips after maxFailures consecutive failures and refuses
// further calls for the cooldown period. The planner treats ErrCircuitOpen
// like any backend failure and falls straight back to the default plan, so a
// flapping backend stops adding latency to every conversation.
type CircuitBreaker struct {
	mu            sync.Mutex
	maxFailures   int
	cooldown      time.Duration
	failures      int
	state         State
	openedAt      time.Time
	onStateChange func(from, to State)
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	return &CircuitBreaker{maxFailures: maxFailures, cooldown: cooldown, state: StateClosed}
}

// SetOnStateChange registers a transition hook (used for logging).
func (cb *CircuitBreaker) SetOnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// State returns the current state, advancing open→half-open when the
// cooldown has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.cooldown {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if to == StateOpen {
		cb.openedAt = time.Now()
	}
	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}

// Execute runs fn unless the breaker is open. Success closes the breaker and
// resets the failure count; failure counts toward tripping it.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.stateLocked() == StateOpen {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err == nil {
		cb.failures = 0
		cb.transitionLocked(StateClosed)
		return nil
	}
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.transitionLocked(StateOpen)
	}
	return err
}
