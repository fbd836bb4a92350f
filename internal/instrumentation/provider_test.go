package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderDisabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	provider, err := NewProvider(context.Background(), config)
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics(), "disabled provider must still hand out a recorder")
	assert.Nil(t, provider.PrometheusHandler())
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestDisabledProviderTracerIsNoop(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	provider, err := NewProvider(context.Background(), config)
	require.NoError(t, err)

	tracer := provider.Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	span.End()

	assert.False(t, span.SpanContext().IsValid())
}

func TestNoopMetricsRecorderDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	m := &Metrics{}

	assert.NotPanics(t, func() {
		m.RecordSessionOp(ctx, ProviderDefault, "createSession", StatusSuccess, time.Second)
		m.RecordAuthAttempt(ctx, ProviderAlternate, StatusError)
		m.RecordReconfiguration(ctx, "https://login.example.com/")
		m.RecordTelemetryDrop(ctx, "login")
		m.IncrementActiveProviders(ctx)
		m.DecrementActiveProviders(ctx)
	})
}

func TestGetTraceIDWithoutSpan(t *testing.T) {
	assert.Equal(t, "", GetTraceID(context.Background()))
}
