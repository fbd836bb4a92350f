package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the msauthd module.
const TracerName = "github.com/ruffsl/msauthd"

// Span attribute keys for brokered operations.
const (
	// SpanAttrProvider is the provider id attribute.
	SpanAttrProvider = "auth.provider"

	// SpanAttrOperation is the session operation attribute.
	SpanAttrOperation = "auth.operation"

	// SpanAttrStatus is the operation status attribute.
	SpanAttrStatus = "auth.status"

	// SpanAttrEndpoint is the identity endpoint URL attribute.
	SpanAttrEndpoint = "auth.endpoint"
)

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartSessionOpSpan starts a span for a brokered session operation.
func StartSessionOpSpan(ctx context.Context, providerID, operation string) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "auth."+operation,
		trace.WithAttributes(
			attribute.String(SpanAttrProvider, providerID),
			attribute.String(SpanAttrOperation, operation),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// GetTraceID extracts the trace ID from the current span in context.
// Returns an empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
