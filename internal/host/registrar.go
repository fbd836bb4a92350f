package host

import (
	"fmt"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ruffsl/msauthd/internal/instrumentation"
	"github.com/ruffsl/msauthd/internal/logging"
	"github.com/ruffsl/msauthd/internal/provider"
)

// MCPRegistrar exposes authentication providers as MCP tools. Each
// registered provider contributes three tools named after its id:
//
//	<id>_get_sessions
//	<id>_create_session
//	<id>_remove_session
//
// Disposing a registration deletes the tools, which also notifies
// connected clients through the server's list-changed capability.
type MCPRegistrar struct {
	server  *mcpserver.MCPServer
	logger  logging.Logger
	metrics *instrumentation.Metrics

	mu   sync.Mutex
	live map[string]*mcpRegistration
}

// RegistrarOption configures an MCPRegistrar.
type RegistrarOption func(*MCPRegistrar)

// WithMetrics enables tool invocation metrics for all registered tools.
func WithMetrics(metrics *instrumentation.Metrics) RegistrarOption {
	return func(r *MCPRegistrar) {
		r.metrics = metrics
	}
}

// NewMCPRegistrar wraps an MCP server.
func NewMCPRegistrar(server *mcpserver.MCPServer, logger logging.Logger, opts ...RegistrarOption) *MCPRegistrar {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	r := &MCPRegistrar{
		server: server,
		logger: logger,
		live:   map[string]*mcpRegistration{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type mcpRegistration struct {
	registrar   *MCPRegistrar
	id          string
	toolNames   []string
	disposeOnce sync.Once
}

// Register implements provider.Registrar. Registering an id that is
// already live fails; the caller must dispose the previous registration
// first.
func (r *MCPRegistrar) Register(id, displayName string, handler provider.SessionHandler, opts Options) (provider.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live[id]; ok {
		return nil, fmt.Errorf("provider %q is already registered", id)
	}

	reg := &mcpRegistration{registrar: r, id: id}
	for _, t := range providerTools(id, displayName, handler, opts) {
		r.server.AddTool(t.tool, InstrumentedToolHandler(t.tool.Name, r.metrics, t.handler))
		reg.toolNames = append(reg.toolNames, t.tool.Name)
	}
	r.live[id] = reg

	r.logger.Info("provider tools registered",
		logging.KeyProvider, id, "display_name", displayName)
	return reg, nil
}

// Dispose removes the provider's tools from the server. Idempotent.
func (reg *mcpRegistration) Dispose() error {
	reg.disposeOnce.Do(func() {
		r := reg.registrar
		r.mu.Lock()
		delete(r.live, reg.id)
		r.mu.Unlock()

		r.server.DeleteTools(reg.toolNames...)
		r.logger.Info("provider tools removed", logging.KeyProvider, reg.id)
	})
	return nil
}

// LiveProviders returns the ids of currently registered providers.
func (r *MCPRegistrar) LiveProviders() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	return ids
}

// Options aliases the provider package's registration options so hosts
// only import this package.
type Options = provider.Options
