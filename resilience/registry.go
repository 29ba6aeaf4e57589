package resilience

import (
	"sync"

	"github.com/gridmind/gridmind/core"
)

// BreakerRegistry creates and owns one circuit breaker per dependency
// name. Breakers are created lazily with the registry's default settings
// and are never destroyed during process lifetime. Callers must mutate
// breaker state only through Call.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
	defaults core.BreakerSettings
	logger   core.Logger
	metrics  MetricsCollector
}

// NewBreakerRegistry creates a registry applying defaults to every
// breaker it creates.
func NewBreakerRegistry(defaults core.BreakerSettings, logger core.Logger, metrics MetricsCollector) *BreakerRegistry {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	return &BreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
		defaults: defaults,
		logger:   logger,
		metrics:  metrics,
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *BreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cb, err := NewCircuitBreaker(Settings{
		Name:             name,
		FailureThreshold: r.defaults.FailureThreshold,
		OpenTimeout:      r.defaults.OpenTimeout,
		SuccessThreshold: r.defaults.SuccessThreshold,
		Logger:           r.logger,
		Metrics:          r.metrics,
	})
	if err != nil {
		// Defaults are validated at startup; reaching this means a
		// programming error, so fail loudly with a permissive breaker.
		r.logger.Error("Falling back to permissive breaker settings", map[string]interface{}{
			"operation": "breaker_registry_fallback",
			"name":      name,
			"error":     err.Error(),
		})
		cb, _ = NewCircuitBreaker(Settings{
			Name:             name,
			FailureThreshold: 5,
			OpenTimeout:      r.defaults.OpenTimeout,
			SuccessThreshold: 2,
			Logger:           r.logger,
			Metrics:          r.metrics,
		})
	}

	r.breakers[name] = cb
	return cb
}

// Snapshots returns the current state of every breaker, keyed by name.
func (r *BreakerRegistry) Snapshots() map[string]Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Snapshot, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.Snapshot()
	}
	return out
}

// Reset resets the named breaker if it exists.
func (r *BreakerRegistry) Reset(name string) {
	r.mu.Lock()
	cb, ok := r.breakers[name]
	r.mu.Unlock()
	if ok {
		cb.Reset()
	}
}
