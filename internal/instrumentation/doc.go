// Package instrumentation provides OpenTelemetry metrics and tracing for
// msauthd.
//
// The Provider wires exporters (Prometheus, OTLP over HTTP, stdout for
// development) from environment-driven configuration and hands out a
// Metrics recorder used by the telemetry gateway, the session broker, and
// the provider lifecycle manager. When instrumentation is disabled every
// recorder degrades to a no-op.
package instrumentation
