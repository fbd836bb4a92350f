package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrOperation = "operation"
	attrProvider  = "provider"
	attrStatus    = "status"
	attrEvent     = "event"
	attrEndpoint  = "endpoint"
	attrTool      = "tool"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// Session operation metrics
	sessionOpsTotal   metric.Int64Counter
	sessionOpDuration metric.Float64Histogram

	// Authentication attempt metrics
	authAttemptsTotal metric.Int64Counter

	// Provider lifecycle metrics
	activeProviders        metric.Int64UpDownCounter
	reconfigurationsTotal  metric.Int64Counter
	telemetryEventsDropped metric.Int64Counter

	// MCP tool invocation metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included.
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.sessionOpsTotal, err = meter.Int64Counter(
		"auth_session_ops_total",
		metric.WithDescription("Total number of session operations brokered to identity backends"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_session_ops_total counter: %w", err)
	}

	m.sessionOpDuration, err = meter.Float64Histogram(
		"auth_session_op_duration_seconds",
		metric.WithDescription("Session operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0, 300.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_session_op_duration_seconds histogram: %w", err)
	}

	m.authAttemptsTotal, err = meter.Int64Counter(
		"auth_attempts_total",
		metric.WithDescription("Total number of interactive authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_attempts_total counter: %w", err)
	}

	m.activeProviders, err = meter.Int64UpDownCounter(
		"active_providers",
		metric.WithDescription("Number of provider registrations currently live"),
		metric.WithUnit("{provider}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_providers gauge: %w", err)
	}

	m.reconfigurationsTotal, err = meter.Int64Counter(
		"provider_reconfigurations_total",
		metric.WithDescription("Total number of alternate-provider reconfigurations applied"),
		metric.WithUnit("{reconfiguration}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_reconfigurations_total counter: %w", err)
	}

	m.telemetryEventsDropped, err = meter.Int64Counter(
		"telemetry_events_dropped_total",
		metric.WithDescription("Telemetry events dropped because the gateway queue was full"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry_events_dropped_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool invocation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0, 300.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordToolInvocation records an MCP tool invocation with its status
// and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSessionOp records a brokered session operation with provider
// variant, operation name, status, and duration.
//
// Parameters:
//   - provider: provider variant ("default" or "alternate")
//   - operation: operation name (getSessions, createSession, removeSession)
//   - status: "success" or "error"
//   - duration: time taken for the operation
func (m *Metrics) RecordSessionOp(ctx context.Context, provider, operation, status string, duration time.Duration) {
	if m == nil || m.sessionOpsTotal == nil || m.sessionOpDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.sessionOpsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.sessionOpDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAuthAttempt records an interactive authentication attempt.
// Status should be one of: "success", "error".
func (m *Metrics) RecordAuthAttempt(ctx context.Context, provider, status string) {
	if m == nil || m.authAttemptsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	}

	m.authAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReconfiguration records one applied alternate-provider
// reconfiguration. The endpoint label is only included when detailed
// labels are enabled, since arbitrary endpoint URLs are unbounded.
func (m *Metrics) RecordReconfiguration(ctx context.Context, endpoint string) {
	if m == nil || m.reconfigurationsTotal == nil {
		return // Instrumentation not initialized
	}

	var attrs []attribute.KeyValue
	if m.detailedLabels && endpoint != "" {
		attrs = append(attrs, attribute.String(attrEndpoint, endpoint))
	}

	m.reconfigurationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTelemetryDrop records a telemetry event dropped by the gateway.
func (m *Metrics) RecordTelemetryDrop(ctx context.Context, event string) {
	if m == nil || m.telemetryEventsDropped == nil {
		return // Instrumentation not initialized
	}

	m.telemetryEventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String(attrEvent, event)))
}

// IncrementActiveProviders increments the live provider registration gauge.
func (m *Metrics) IncrementActiveProviders(ctx context.Context) {
	if m == nil || m.activeProviders == nil {
		return // Instrumentation not initialized
	}

	m.activeProviders.Add(ctx, 1)
}

// DecrementActiveProviders decrements the live provider registration gauge.
func (m *Metrics) DecrementActiveProviders(ctx context.Context) {
	if m == nil || m.activeProviders == nil {
		return // Instrumentation not initialized
	}

	m.activeProviders.Add(ctx, -1)
}
