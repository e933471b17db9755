package infra

import (
	"sync"
	"time"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures that open the circuit
	ResetTimeout     time.Duration // how long the circuit stays open before probing
	HalfOpenProbes   int           // requests let through while half-open
}

// DefaultBreakerConfig opens after 5 failures and probes after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenProbes:   2,
	}
}

// CircuitBreaker fails fast while an upstream API keeps failing.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg BreakerConfig
	now func() time.Time

	state            CircuitState
	consecutiveFails int
	lastFailure      time.Time
	probes           int
	probeStart       time.Time
}

// NewCircuitBreaker creates a breaker with DefaultBreakerConfig.
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithConfig(DefaultBreakerConfig())
}

// NewCircuitBreakerWithConfig creates a breaker with cfg. Non-positive
// fields fall back to the defaults.
func NewCircuitBreakerWithConfig(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = def.HalfOpenProbes
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a request may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cfg.ResetTimeout {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.probes = 1
		cb.probeStart = cb.now()
		return true
	case CircuitHalfOpen:
		if cb.probes < cb.cfg.HalfOpenProbes {
			cb.probes++
			return true
		}
		// Probes that never reported back expire after ResetTimeout.
		if cb.now().Sub(cb.probeStart) >= cb.cfg.ResetTimeout {
			cb.probes = 1
			cb.probeStart = cb.now()
			return true
		}
		return false
	}
	return false
}

// Release hands back a half-open probe slot taken by Allow when the request
// ended without an upstream outcome, such as a canceled caller.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen && cb.probes > 0 {
		cb.probes--
	}
}

// RecordSuccess resets the failure count and closes a half-open circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.probes = 0
	}
}

// RecordFailure counts a failure. A half-open circuit reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = cb.now()

	switch cb.state {
	case CircuitClosed:
		if cb.consecutiveFails >= cb.cfg.FailureThreshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.probes = 0
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// RetryAt returns when an open circuit will next let a probe through.
func (cb *CircuitBreaker) RetryAt() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastFailure.Add(cb.cfg.ResetTimeout)
}

// Stats returns a snapshot for health reporting.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:            cb.state.String(),
		ConsecutiveFails: cb.consecutiveFails,
		LastFailure:      cb.lastFailure,
	}
}

// CircuitBreakerStats is a point-in-time view of a breaker.
type CircuitBreakerStats struct {
	State            string    `json:"state"`
	ConsecutiveFails int       `json:"consecutive_failures"`
	LastFailure      time.Time `json:"last_failure,omitempty"`
}

// ErrCircuitOpen is returned while the breaker rejects requests.
type ErrCircuitOpen struct {
	Service  string
	RetryAt  time.Time
	Failures int
}

func (e ErrCircuitOpen) Error() string {
	return "circuit breaker open for " + e.Service + ", retry after " + e.RetryAt.Format(time.RFC3339)
}
