package broker

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ruffsl/msauthd/internal/identity"
	"github.com/ruffsl/msauthd/internal/instrumentation"
	"github.com/ruffsl/msauthd/internal/logging"
	"github.com/ruffsl/msauthd/internal/scopes"
	"github.com/ruffsl/msauthd/internal/telemetry"
)

// Broker exposes one identity backend to hosts, applying the error and
// telemetry policy for session operations:
//
//   - GetSessions passes scopes through untouched and emits no telemetry.
//   - CreateSession normalizes scopes, propagates backend errors to the
//     caller, and emits exactly one login or loginFailed event.
//   - RemoveSession absorbs backend errors and emits exactly one logout
//     or logoutFailed event.
type Broker struct {
	backend    identity.Backend
	providerID string
	alternate  bool
	gateway    *telemetry.Gateway
	metrics    *instrumentation.Metrics
	logger     logging.Logger
}

// Option configures a Broker.
type Option func(*Broker)

// WithTelemetry wires the event gateway.
func WithTelemetry(g *telemetry.Gateway) Option {
	return func(b *Broker) { b.gateway = g }
}

// WithMetrics wires the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(b *Broker) { b.metrics = m }
}

// WithLogger overrides the broker's logger.
func WithLogger(l logging.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// New wraps a backend for the given provider id. The alternate flag
// selects the sovereign variant of every telemetry event.
func New(backend identity.Backend, providerID string, alternate bool, opts ...Option) *Broker {
	b := &Broker{
		backend:    backend,
		providerID: providerID,
		alternate:  alternate,
		logger:     logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ProviderID returns the provider id this broker serves.
func (b *Broker) ProviderID() string {
	return b.providerID
}

// GetSessions lists sessions for the requested scopes. Scopes are
// forwarded exactly as received.
func (b *Broker) GetSessions(ctx context.Context, requested []string) ([]identity.Session, error) {
	ctx, span := instrumentation.StartSessionOpSpan(ctx, b.providerID, "getSessions")
	defer span.End()
	start := time.Now()

	sessions, err := b.backend.GetSessions(ctx, requested)
	b.finishSpan(span, err)
	b.metrics.RecordSessionOp(ctx, b.providerID, "getSessions", statusOf(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("getting sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession authenticates a new session. The requested scopes are
// protocol-normalized before reaching the backend; backend errors are
// returned to the caller unchanged.
func (b *Broker) CreateSession(ctx context.Context, requested []string) (identity.Session, error) {
	ctx, span := instrumentation.StartSessionOpSpan(ctx, b.providerID, "createSession")
	defer span.End()
	start := time.Now()

	normalized := scopes.Protocol(requested)
	session, err := b.backend.CreateSession(ctx, normalized)

	b.finishSpan(span, err)
	b.metrics.RecordSessionOp(ctx, b.providerID, "createSession", statusOf(err), time.Since(start))
	b.metrics.RecordAuthAttempt(ctx, b.providerID, statusOf(err))

	props := telemetry.Props(b.providerID, scopes.TelemetryValue(requested))
	if err != nil {
		b.gateway.Emit(telemetry.ForProvider(telemetry.EventLoginFailed, b.alternate),
			telemetry.WithError(props, err))
		b.logger.Warn("session creation failed",
			logging.KeyProvider, b.providerID, logging.KeyError, err)
		return identity.Session{}, err
	}

	b.gateway.Emit(telemetry.ForProvider(telemetry.EventLogin, b.alternate), props)
	b.logger.Info("session created",
		logging.KeyProvider, b.providerID,
		logging.KeySessionID, session.ID,
		logging.KeyAccount, logging.AnonymizeAccount(session.AccountLabel))
	return session, nil
}

// RemoveSession removes a session by id. Backend failures are logged and
// reported through telemetry but never surfaced to the caller; a failed
// logout must not break the host.
func (b *Broker) RemoveSession(ctx context.Context, id string) error {
	ctx, span := instrumentation.StartSessionOpSpan(ctx, b.providerID, "removeSession")
	defer span.End()
	start := time.Now()

	err := b.backend.RemoveSessionByID(ctx, id)

	b.finishSpan(span, err)
	b.metrics.RecordSessionOp(ctx, b.providerID, "removeSession", statusOf(err), time.Since(start))

	props := telemetry.Props(b.providerID, "")
	if err != nil {
		b.gateway.Emit(telemetry.ForProvider(telemetry.EventLogoutFailed, b.alternate),
			telemetry.WithError(props, err))
		b.logger.Warn("session removal failed",
			logging.KeyProvider, b.providerID,
			logging.KeySessionID, id,
			logging.KeyError, err)
		return nil
	}

	b.gateway.Emit(telemetry.ForProvider(telemetry.EventLogout, b.alternate), props)
	b.logger.Info("session removed",
		logging.KeyProvider, b.providerID, logging.KeySessionID, id)
	return nil
}

// SessionsChanged forwards the backend's change stream.
func (b *Broker) SessionsChanged() <-chan identity.SessionChange {
	return b.backend.SessionsChanged()
}

func (b *Broker) finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func statusOf(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}
