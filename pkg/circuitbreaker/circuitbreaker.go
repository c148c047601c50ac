package circuitbreaker

import (
	"fmt"
	"sync"
	"time"
)

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Settings configures a breaker. MaxRequests is the consecutive-failure
// threshold that opens the circuit; Timeout is how long it stays open
// before a probe call is allowed through.
type Settings struct {
	Name        string
	MaxRequests int
	Interval    time.Duration
	Timeout     time.Duration
}

// CircuitBreaker trips after repeated failures so a dead dependency fails
// fast instead of holding callers on timeouts.
type CircuitBreaker struct {
	name      string
	threshold int
	timeout   time.Duration

	mu       sync.Mutex
	st       state
	failures int
	openedAt time.Time
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	return &CircuitBreaker{
		name:      settings.Name,
		threshold: settings.MaxRequests,
		timeout:   settings.Timeout,
		st:        stateClosed,
	}
}

// Execute runs fn unless the circuit is open. The first call after the
// open timeout elapses acts as the half-open probe: success closes the
// circuit, failure re-opens it.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.st == stateOpen {
		if time.Since(cb.openedAt) < cb.timeout {
			cb.mu.Unlock()
			return fmt.Errorf("circuit breaker %q is open", cb.name)
		}
		cb.st = stateHalfOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		if cb.st == stateHalfOpen || cb.failures >= cb.threshold {
			cb.st = stateOpen
			cb.openedAt = time.Now()
		}
		return err
	}

	cb.st = stateClosed
	cb.failures = 0
	return nil
}
