package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gridmind/gridmind/core"
)

// State represents the state of the circuit breaker
type State int

const (
	// StateClosed allows all requests through
	StateClosed State = iota
	// StateOpen blocks all requests until the open timeout elapses
	StateOpen
	// StateHalfOpen allows requests through while probing for recovery
	StateHalfOpen
)

// String returns the string representation of the state
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

// MetricsCollector interface for circuit breaker metrics
type MetricsCollector interface {
	RecordSuccess(name string)
	RecordFailure(name string, errorType string)
	RecordStateChange(name string, from, to string)
	RecordRejection(name string)
}

// noopMetrics is a no-op metrics implementation
type noopMetrics struct{}

func (n *noopMetrics) RecordSuccess(name string)                      {}
func (n *noopMetrics) RecordFailure(name string, errorType string)    {}
func (n *noopMetrics) RecordStateChange(name string, from, to string) {}
func (n *noopMetrics) RecordRejection(name string)                    {}

// Settings holds configuration for one circuit breaker.
type Settings struct {
	// Name identifies the breaker in logs and metrics
	Name string

	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold int

	// OpenTimeout is how long to stay open before probing recovery
	OpenTimeout time.Duration

	// SuccessThreshold is the number of consecutive half-open successes
	// needed to close again
	SuccessThreshold int

	// Logger for state transitions
	Logger core.Logger

	// Metrics collector for monitoring
	Metrics MetricsCollector
}

// Validate validates the breaker settings
func (s *Settings) Validate() error {
	if s.Name == "" {
		return errors.New("circuit breaker name is required")
	}
	if s.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be at least 1, got %d", s.FailureThreshold)
	}
	if s.SuccessThreshold < 1 {
		return fmt.Errorf("success threshold must be at least 1, got %d", s.SuccessThreshold)
	}
	if s.OpenTimeout <= 0 {
		return fmt.Errorf("open timeout must be positive, got %v", s.OpenTimeout)
	}
	return nil
}

// CircuitBreaker guards one unreliable dependency.
//
// State machine:
//
//	Closed --(FailureThreshold consecutive failures)--> Open
//	Open   --(OpenTimeout elapsed)-->                   HalfOpen
//	HalfOpen --(SuccessThreshold consecutive successes)--> Closed
//	HalfOpen --(any failure)-->                         Open
//
// The mutex protects only state reads and writes. The guarded call runs
// outside the lock, so any number of callers can be in flight against
// the same breaker; the counters are therefore slightly racy under
// concurrent failure bursts, which is acceptable because the threshold
// check is a liveness heuristic, not a safety property.
type CircuitBreaker struct {
	settings Settings

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	lastSuccessTime time.Time
}

// Snapshot is a point-in-time view of a breaker for introspection.
type Snapshot struct {
	Name            string     `json:"name"`
	State           string     `json:"state"`
	FailureCount    int        `json:"failure_count"`
	SuccessCount    int        `json:"success_count"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
	LastSuccessTime *time.Time `json:"last_success_time,omitempty"`
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(settings Settings) (*CircuitBreaker, error) {
	if settings.Logger == nil {
		settings.Logger = &core.NoOpLogger{}
	}
	if settings.Metrics == nil {
		settings.Metrics = &noopMetrics{}
	}
	if err := settings.Validate(); err != nil {
		settings.Logger.Error("Circuit breaker configuration rejected", map[string]interface{}{
			"operation": "circuit_breaker_validation_failed",
			"name":      settings.Name,
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("invalid circuit breaker settings: %w", err)
	}

	cb := &CircuitBreaker{
		settings: settings,
		state:    StateClosed,
	}

	settings.Logger.Debug("Circuit breaker created", map[string]interface{}{
		"operation":         "circuit_breaker_created",
		"name":              settings.Name,
		"failure_threshold": settings.FailureThreshold,
		"open_timeout_ms":   settings.OpenTimeout.Milliseconds(),
		"success_threshold": settings.SuccessThreshold,
	})
	return cb, nil
}

// Call invokes fn under breaker protection. When the breaker is open and
// the open timeout has not elapsed, Call fails fast with a
// *core.CircuitOpenError without invoking fn. fn runs without the lock
// held.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		elapsed := time.Since(cb.lastFailureTime)
		if elapsed <= cb.settings.OpenTimeout {
			cb.mu.Unlock()
			cb.settings.Metrics.RecordRejection(cb.settings.Name)
			cb.settings.Logger.Debug("Circuit breaker rejected call", map[string]interface{}{
				"operation":   "circuit_breaker_reject",
				"name":        cb.settings.Name,
				"elapsed_ms":  elapsed.Milliseconds(),
				"retry_after": (cb.settings.OpenTimeout - elapsed).String(),
			})
			return &core.CircuitOpenError{
				Name:       cb.settings.Name,
				Elapsed:    elapsed,
				RetryAfter: cb.settings.OpenTimeout,
			}
		}
		// Timeout elapsed, probe for recovery
		cb.transitionLocked(StateHalfOpen)
		cb.successCount = 0
	}
	cb.mu.Unlock()

	err := fn(ctx)

	if err == nil {
		cb.onSuccess()
		return nil
	}
	cb.onFailure(err)
	return err
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.settings.SuccessThreshold {
			cb.transitionLocked(StateClosed)
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
	cb.lastSuccessTime = time.Now()
	cb.mu.Unlock()

	cb.settings.Metrics.RecordSuccess(cb.settings.Name)
}

func (cb *CircuitBreaker) onFailure(err error) {
	cb.mu.Lock()
	cb.failureCount++
	cb.lastFailureTime = time.Now()

	if cb.state == StateHalfOpen {
		// A single failure aborts recovery
		cb.transitionLocked(StateOpen)
		cb.successCount = 0
	} else if cb.state == StateClosed && cb.failureCount >= cb.settings.FailureThreshold {
		cb.transitionLocked(StateOpen)
	}
	failures := cb.failureCount
	cb.mu.Unlock()

	cb.settings.Metrics.RecordFailure(cb.settings.Name, errorType(err))
	cb.settings.Logger.Debug("Circuit breaker recorded failure", map[string]interface{}{
		"operation":     "circuit_breaker_failure",
		"name":          cb.settings.Name,
		"failure_count": failures,
		"error":         err.Error(),
	})
}

// transitionLocked changes state (must be called with the lock held)
func (cb *CircuitBreaker) transitionLocked(newState State) {
	oldState := cb.state
	if oldState == newState {
		return
	}
	cb.state = newState

	cb.settings.Logger.Info("Circuit breaker state changed", map[string]interface{}{
		"operation":     "circuit_breaker_transition",
		"name":          cb.settings.Name,
		"from":          oldState.String(),
		"to":            newState.String(),
		"failure_count": cb.failureCount,
	})
	cb.settings.Metrics.RecordStateChange(cb.settings.Name, oldState.String(), newState.String())
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns a copy of the breaker's current counters and times.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	snap := Snapshot{
		Name:         cb.settings.Name,
		State:        cb.state.String(),
		FailureCount: cb.failureCount,
		SuccessCount: cb.successCount,
	}
	if !cb.lastFailureTime.IsZero() {
		t := cb.lastFailureTime
		snap.LastFailureTime = &t
	}
	if !cb.lastSuccessTime.IsZero() {
		t := cb.lastSuccessTime
		snap.LastSuccessTime = &t
	}
	return snap
}

// Reset returns the breaker to the closed state with cleared counters.
// Intended for tests and operational intervention.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	oldState := cb.state
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	cb.lastFailureTime = time.Time{}
	cb.lastSuccessTime = time.Time{}
	cb.mu.Unlock()

	cb.settings.Logger.Info("Circuit breaker reset", map[string]interface{}{
		"operation":      "circuit_breaker_reset",
		"name":           cb.settings.Name,
		"previous_state": oldState.String(),
	})
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, core.ErrTimeout):
		return "timeout"
	case errors.Is(err, core.ErrConnectionFailed):
		return "connection_failed"
	case errors.Is(err, core.ErrRateLimited):
		return "rate_limited"
	default:
		return fmt.Sprintf("%T", err)
	}
}
