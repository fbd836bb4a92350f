package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/ruffsl/msauthd/internal/config"
	"github.com/ruffsl/msauthd/internal/credstore"
	"github.com/ruffsl/msauthd/internal/endpoint"
	"github.com/ruffsl/msauthd/internal/host"
	"github.com/ruffsl/msauthd/internal/identity"
	"github.com/ruffsl/msauthd/internal/instrumentation"
	"github.com/ruffsl/msauthd/internal/logging"
	"github.com/ruffsl/msauthd/internal/provider"
	"github.com/ruffsl/msauthd/internal/server"
	"github.com/ruffsl/msauthd/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var (
		debugMode         bool
		sovereignEndpoint string
		metricsEnabled    bool
		metricsAddr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP session broker",
		Long: `Start the Model Context Protocol (MCP) server that brokers Microsoft
Entra ID sessions to AI assistants and other MCP clients.

The server speaks MCP over stdio. Each registered provider contributes
get/create/remove session tools; the sovereign cloud provider appears
and disappears as the 'sovereign.endpoint' configuration value changes.

Sovereign endpoint values:
  - A well-known cloud name: "Azure China", "Azure US Government"
  - A custom authority URL:  https://login.contoso.example/
  - Empty: only the default Microsoft provider is exposed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(debugMode)

			shutdownCtx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			configFile, _ := cmd.Flags().GetString("config")
			cfg, v, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sovereign-endpoint") {
				cfg.SovereignEndpoint = sovereignEndpoint
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}

			logger := logging.DefaultLogger()

			// Instrumentation provider (metrics + tracing exporters).
			instrConfig := instrumentation.DefaultConfig()
			instrConfig.ServiceVersion = version

			instrProvider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
			if err != nil {
				return fmt.Errorf("failed to create instrumentation provider: %w", err)
			}
			defer func() {
				if err := instrProvider.Shutdown(context.Background()); err != nil {
					logger.Warn("instrumentation shutdown failed", logging.KeyError, err)
				}
			}()

			health := server.NewHealthChecker()

			// Metrics listener on its own port; the MCP transport stays
			// on stdio.
			var metricsServer *server.MetricsServer
			if metricsEnabled && instrProvider.Enabled() {
				metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
					Addr:                    cfg.MetricsAddr,
					InstrumentationProvider: instrProvider,
					Health:                  health,
				})
				if err != nil {
					return fmt.Errorf("failed to create metrics server: %w", err)
				}

				metricsReady := make(chan struct{})
				metricsErr := make(chan error, 1)
				go func() {
					if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
						metricsErr <- err
					}
					close(metricsErr)
				}()

				select {
				case <-metricsReady:
					logger.Info("metrics server started", "addr", metricsServer.Addr())
				case err := <-metricsErr:
					return fmt.Errorf("metrics server failed to start: %w", err)
				case <-time.After(5 * time.Second):
					return fmt.Errorf("metrics server startup timed out")
				}

				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
					defer cancel()
					if err := metricsServer.Shutdown(shutdownCtx); err != nil {
						logger.Warn("metrics server shutdown failed", logging.KeyError, err)
					}
				}()
			}

			// Telemetry gateway: structured log events plus drop counter.
			gateway := telemetry.NewGateway(
				telemetry.WithSink(telemetry.NewSlogSink(slog.Default())),
				telemetry.WithMetrics(instrProvider.Metrics()),
			)
			defer gateway.Close()

			// Token cache persistence: OS keyring, file fallback.
			store, err := credstore.OpenDefaultStore(logger)
			if err != nil {
				return fmt.Errorf("failed to open credential store: %w", err)
			}

			factory := func(desc *endpoint.Descriptor, alternate bool) (identity.Backend, error) {
				cacheKey := "default"
				if alternate {
					cacheKey = "alternate:" + desc.NormalizedURL
				}
				return identity.NewMSALBackend(identity.MSALConfig{
					Endpoint:    desc.NormalizedURL,
					TenantID:    cfg.TenantID,
					ClientID:    cfg.ClientID,
					Cache:       credstore.NewCache(store, cacheKey, logger),
					Logger:      logger,
					OpenBrowser: cfg.OpenBrowser,
				}), nil
			}

			mcpSrv := mcpserver.NewMCPServer("msauthd", version,
				mcpserver.WithToolCapabilities(true),
			)

			registrar := host.NewMCPRegistrar(mcpSrv, logger,
				host.WithMetrics(instrProvider.Metrics()))
			host.RegisterProviderListTool(mcpSrv, registrar)

			manager, err := provider.NewManager(provider.Config{
				Registrar:       registrar,
				Factory:         factory,
				InitialEndpoint: cfg.SovereignEndpoint,
				Telemetry:       gateway,
				Metrics:         instrProvider.Metrics(),
				Logger:          logger,
			})
			if err != nil {
				return err
			}
			if err := manager.Start(shutdownCtx); err != nil {
				return err
			}
			defer func() {
				health.SetShuttingDown()
				manager.Stop()
			}()
			health.SetReady(true)

			// Swap the sovereign provider when its config value changes.
			config.WatchEndpoint(v, logger, manager.ApplyConfiguration)

			return runStdioServer(shutdownCtx, mcpSrv)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&sovereignEndpoint, "sovereign-endpoint", "",
		"Sovereign cloud name or authority URL for the alternate provider")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics", true, "Serve Prometheus metrics and health probes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics listen address")

	return cmd
}

// runStdioServer serves MCP over stdio until the client disconnects or
// the process receives a shutdown signal.
func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

// setupLogging routes structured logs to stderr; stdout belongs to the
// MCP transport.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
