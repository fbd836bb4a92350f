package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/ruffsl/msauthd/internal/broker"
	"github.com/ruffsl/msauthd/internal/endpoint"
	"github.com/ruffsl/msauthd/internal/identity"
	"github.com/ruffsl/msauthd/internal/instrumentation"
	"github.com/ruffsl/msauthd/internal/logging"
	"github.com/ruffsl/msauthd/internal/telemetry"
)

// Provider ids exposed to hosts. The default id is always registered;
// the alternate id exists only while a valid sovereign endpoint is
// configured.
const (
	DefaultProviderID   = "microsoft"
	AlternateProviderID = "microsoft-sovereign-cloud"

	defaultDisplayName = "Microsoft"
)

// BackendFactory constructs an identity backend bound to one endpoint.
// The manager never reuses a backend across endpoints.
type BackendFactory func(desc *endpoint.Descriptor, alternate bool) (identity.Backend, error)

// Config wires a Manager.
type Config struct {
	Registrar Registrar
	Factory   BackendFactory

	// InitialEndpoint is the raw alternate endpoint value at startup.
	InitialEndpoint string

	Telemetry *telemetry.Gateway
	Metrics   *instrumentation.Metrics
	Logger    logging.Logger
}

// leg is one live provider: its backend, broker and host registration.
type leg struct {
	desc         *endpoint.Descriptor
	backend      identity.Backend
	registration Registration
}

// Manager owns the fixed default provider and the zero-or-one alternate
// provider. All alternate mutations happen on a single worker goroutine
// fed by a coalescing one-slot mailbox, so concurrent configuration
// changes serialize and only the latest pending value is applied.
type Manager struct {
	cfg     Config
	logger  logging.Logger
	mailbox chan string
	done    chan struct{}
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool

	ctx context.Context

	// Worker-owned after Start; Stop touches them only after the worker
	// has exited.
	defaultLeg   *leg
	alternateLeg *leg

	// lastInvalid suppresses repeated reports of the same bad value.
	lastInvalid string
}

// NewManager builds an unstarted manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Registrar == nil {
		return nil, fmt.Errorf("provider manager requires a registrar")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("provider manager requires a backend factory")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		mailbox: make(chan string, 1),
		done:    make(chan struct{}),
	}, nil
}

// Start registers the default provider, applies the initial alternate
// endpoint configuration, then begins serving configuration changes.
// The default provider failing to register is fatal; an invalid initial
// alternate endpoint is reported and skipped.
func (m *Manager) Start(ctx context.Context) error {
	var startErr error
	m.startOnce.Do(func() {
		m.ctx = ctx

		def, err := m.buildLeg(endpoint.Default(), false)
		if err != nil {
			startErr = fmt.Errorf("registering default provider: %w", err)
			return
		}
		m.defaultLeg = def
		m.cfg.Metrics.IncrementActiveProviders(ctx)
		m.logger.Info("default provider registered", logging.KeyProvider, DefaultProviderID)

		// Apply the startup configuration before accepting changes so
		// Start returns with the alternate leg settled.
		m.reconfigure(m.cfg.InitialEndpoint)

		m.started = true
		m.wg.Add(1)
		go m.worker()
	})
	return startErr
}

// ApplyConfiguration hands a new raw alternate endpoint value to the
// worker. It never blocks: a pending unapplied value is discarded in
// favor of this one.
func (m *Manager) ApplyConfiguration(raw string) {
	select {
	case <-m.done:
		return
	default:
	}

	for {
		select {
		case m.mailbox <- raw:
			return
		default:
			// Mailbox holds a stale value; drop it and retry.
			select {
			case <-m.mailbox:
			default:
			}
		}
	}
}

// Stop disposes the alternate and default providers. Idempotent; safe
// to call concurrently with ApplyConfiguration.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		if m.started {
			m.wg.Wait()
		}

		m.disposeAlternate()
		if m.defaultLeg != nil {
			m.disposeLeg(m.defaultLeg, DefaultProviderID)
			m.defaultLeg = nil
			m.cfg.Metrics.DecrementActiveProviders(context.Background())
		}
		m.logger.Info("provider manager stopped")
	})
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case raw := <-m.mailbox:
			m.reconfigure(raw)
		case <-m.done:
			return
		}
	}
}

// reconfigure replaces the alternate leg for a new raw endpoint value.
// The old leg is disposed completely before any part of its replacement
// is created, so at no instant do two alternate registrations exist.
func (m *Manager) reconfigure(raw string) {
	m.disposeAlternate()

	desc, err := endpoint.Resolve(raw)
	if err != nil {
		if raw != m.lastInvalid {
			m.lastInvalid = raw
			m.logger.Error("ignoring invalid alternate endpoint", logging.KeyError, err)
		}
		return
	}
	m.lastInvalid = ""
	if desc == nil {
		m.logger.Debug("no alternate endpoint configured")
		return
	}

	legV, err := m.buildLeg(desc, true)
	if err != nil {
		m.logger.Error("failed to activate alternate provider",
			logging.KeyEndpoint, desc.NormalizedURL, logging.KeyError, err)
		return
	}
	m.alternateLeg = legV
	m.cfg.Metrics.IncrementActiveProviders(m.ctx)
	m.cfg.Metrics.RecordReconfiguration(m.ctx, desc.NormalizedURL)
	m.logger.Info("alternate provider registered",
		logging.KeyProvider, AlternateProviderID,
		logging.KeyEndpoint, desc.NormalizedURL)
}

func (m *Manager) buildLeg(desc *endpoint.Descriptor, alternate bool) (*leg, error) {
	backend, err := m.cfg.Factory(desc, alternate)
	if err != nil {
		return nil, fmt.Errorf("creating backend: %w", err)
	}
	if err := backend.Initialize(m.ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("initializing backend: %w", err)
	}

	id, display := DefaultProviderID, defaultDisplayName
	if alternate {
		id, display = AlternateProviderID, desc.DisplayName
	}

	b := broker.New(backend, id, alternate,
		broker.WithTelemetry(m.cfg.Telemetry),
		broker.WithMetrics(m.cfg.Metrics),
		broker.WithLogger(m.logger))

	registration, err := m.cfg.Registrar.Register(id, display, b, Options{
		SupportsMultipleAccounts: true,
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("registering provider %s: %w", id, err)
	}

	return &leg{desc: desc, backend: backend, registration: registration}, nil
}

func (m *Manager) disposeAlternate() {
	if m.alternateLeg == nil {
		return
	}
	m.disposeLeg(m.alternateLeg, AlternateProviderID)
	m.alternateLeg = nil
	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	m.cfg.Metrics.DecrementActiveProviders(ctx)
}

func (m *Manager) disposeLeg(l *leg, id string) {
	if err := l.registration.Dispose(); err != nil {
		m.logger.Warn("provider deregistration failed",
			logging.KeyProvider, id, logging.KeyError, err)
	}
	if err := l.backend.Close(); err != nil {
		m.logger.Warn("backend close failed",
			logging.KeyProvider, id, logging.KeyError, err)
	}
}
