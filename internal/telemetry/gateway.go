package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ruffsl/msauthd/internal/instrumentation"
	"github.com/ruffsl/msauthd/internal/logging"
)

// Sink receives fully-formed events. Implementations may fail or panic;
// the gateway contains both.
type Sink interface {
	Record(name Event, props map[string]string) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(name Event, props map[string]string) error

// Record calls f.
func (f SinkFunc) Record(name Event, props map[string]string) error {
	return f(name, props)
}

const defaultQueueSize = 256

type envelope struct {
	name  Event
	props map[string]string
}

// Gateway fans events out to its sinks from a single worker goroutine.
// Emit never blocks and never lets a sink failure reach the caller: when
// the queue is full the event is dropped and counted, and a panicking
// sink is recovered and logged.
type Gateway struct {
	queue   chan envelope
	done    chan struct{}
	sinks   []Sink
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithQueueSize overrides the bounded queue capacity.
func WithQueueSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.queue = make(chan envelope, n)
		}
	}
}

// WithSink appends a sink. Sinks run in registration order.
func WithSink(s Sink) Option {
	return func(g *Gateway) {
		if s != nil {
			g.sinks = append(g.sinks, s)
		}
	}
}

// WithMetrics wires the drop counter.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithLogger overrides the gateway's own diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway builds a gateway and starts its worker.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		queue:  make(chan envelope, defaultQueueSize),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.wg.Add(1)
	go g.run()
	return g
}

// NewSlogSink returns a sink that records events as structured log lines.
func NewSlogSink(logger *slog.Logger) Sink {
	return SinkFunc(func(name Event, props map[string]string) error {
		attrs := make([]any, 0, 2*len(props)+2)
		attrs = append(attrs, logging.KeyEvent, string(name))
		for k, v := range props {
			attrs = append(attrs, k, v)
		}
		logger.Info("telemetry", attrs...)
		return nil
	})
}

// Emit enqueues one event. It is safe from any goroutine, returns
// immediately, and silently drops the event when the gateway is closed or
// the queue is full. The props map is copied so callers may reuse it.
func (g *Gateway) Emit(name Event, props map[string]string) {
	if g == nil || g.closed.Load() {
		return
	}

	stamped := make(map[string]string, len(props)+1)
	stamped[PropSchemaVersion] = SchemaVersion
	for k, v := range props {
		stamped[k] = v
	}

	select {
	case g.queue <- envelope{name: name, props: stamped}:
	default:
		g.metrics.RecordTelemetryDrop(context.Background(), string(name))
		g.logger.Debug("telemetry event dropped", "event", string(name))
	}
}

// Close stops the worker after draining queued events. Idempotent.
func (g *Gateway) Close() {
	if g == nil {
		return
	}
	g.closeOnce.Do(func() {
		g.closed.Store(true)
		close(g.done)
		g.wg.Wait()
	})
}

func (g *Gateway) run() {
	defer g.wg.Done()
	for {
		select {
		case env := <-g.queue:
			g.dispatch(env)
		case <-g.done:
			// Drain whatever made it into the queue before shutdown.
			for {
				select {
				case env := <-g.queue:
					g.dispatch(env)
				default:
					return
				}
			}
		}
	}
}

func (g *Gateway) dispatch(env envelope) {
	for _, sink := range g.sinks {
		g.record(sink, env)
	}
}

func (g *Gateway) record(sink Sink, env envelope) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Warn("telemetry sink panicked", "event", string(env.name), "panic", r)
		}
	}()
	if err := sink.Record(env.name, env.props); err != nil {
		g.logger.Debug("telemetry sink failed", "event", string(env.name), "error", err)
	}
}
