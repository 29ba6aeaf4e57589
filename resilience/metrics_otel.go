package resilience

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetricsCollector implements MetricsCollector using OpenTelemetry.
// Instruments are created once against the global meter provider; when no
// provider is installed the calls are no-ops.
type OTelMetricsCollector struct {
	calls        metric.Int64Counter
	failures     metric.Int64Counter
	stateChanges metric.Int64Counter
	rejections   metric.Int64Counter
}

// NewOTelMetricsCollector creates a collector for circuit breaker metrics.
func NewOTelMetricsCollector() *OTelMetricsCollector {
	meter := otel.Meter("gridmind/resilience")

	calls, _ := meter.Int64Counter("circuit_breaker.calls",
		metric.WithDescription("Total circuit breaker calls by result"))
	failures, _ := meter.Int64Counter("circuit_breaker.failures",
		metric.WithDescription("Circuit breaker failures by error type"))
	stateChanges, _ := meter.Int64Counter("circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state transitions"))
	rejections, _ := meter.Int64Counter("circuit_breaker.rejected",
		metric.WithDescription("Requests rejected by an open circuit"))

	return &OTelMetricsCollector{
		calls:        calls,
		failures:     failures,
		stateChanges: stateChanges,
		rejections:   rejections,
	}
}

// RecordSuccess records a successful guarded call
func (o *OTelMetricsCollector) RecordSuccess(name string) {
	o.calls.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("circuit_breaker", name),
			attribute.String("result", "success"),
		))
}

// RecordFailure records a failed guarded call
func (o *OTelMetricsCollector) RecordFailure(name string, errorType string) {
	o.calls.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("circuit_breaker", name),
			attribute.String("result", "failure"),
		))
	o.failures.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("circuit_breaker", name),
			attribute.String("error_type", errorType),
		))
}

// RecordStateChange records a state transition
func (o *OTelMetricsCollector) RecordStateChange(name string, from, to string) {
	o.stateChanges.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("circuit_breaker", name),
			attribute.String("from_state", from),
			attribute.String("to_state", to),
		))
}

// RecordRejection records a fail-fast rejection
func (o *OTelMetricsCollector) RecordRejection(name string) {
	o.rejections.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("circuit_breaker", name),
			attribute.String("result", "rejected"),
		))
}
