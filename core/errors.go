package core

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Resilience errors
	ErrCircuitOpen        = errors.New("circuit breaker is open")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

	// Operation errors
	ErrTimeout          = errors.New("operation timeout")
	ErrConnectionFailed = errors.New("connection failed")
	ErrRequestFailed    = errors.New("request failed")
	ErrRateLimited      = errors.New("rate limited by upstream")

	// Data errors
	ErrStaleData = errors.New("indexed data is stale")
	ErrNoData    = errors.New("no data available")

	// Decomposition errors
	ErrDecomposeParse = errors.New("failed to parse sub-question decomposition")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")
)

// CircuitOpenError reports a fail-fast rejection from an open breaker.
// The message carries how long ago the breaker last failed and how long
// callers should wait, so degraded-tool responses can surface both.
type CircuitOpenError struct {
	Name       string
	Elapsed    time.Duration
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf(
		"circuit breaker '%s' is open: last failure %.1fs ago, retry after %.1fs",
		e.Name, e.Elapsed.Seconds(), e.RetryAfter.Seconds(),
	)
}

// Unwrap makes errors.Is(err, ErrCircuitOpen) work on the wrapped form.
func (e *CircuitOpenError) Unwrap() error {
	return ErrCircuitOpen
}

// IsRetryable checks if an error is retryable.
// Retryable errors are typically transient network or availability issues.
// Circuit-open rejections are deliberately not retryable: retrying against
// an open breaker only burns the backoff budget.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrRequestFailed) ||
		errors.Is(err, ErrRateLimited)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// IsCircuitOpen checks if an error is a breaker fail-fast rejection
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
