package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruffsl/msauthd/internal/broker"
	"github.com/ruffsl/msauthd/internal/config"
	"github.com/ruffsl/msauthd/internal/credstore"
	"github.com/ruffsl/msauthd/internal/endpoint"
	"github.com/ruffsl/msauthd/internal/identity"
	"github.com/ruffsl/msauthd/internal/logging"
	"github.com/ruffsl/msauthd/internal/provider"
)

func newSessionsCmd() *cobra.Command {
	var (
		endpointValue string
		scopesValue   string
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage Entra ID sessions from the command line",
		Long: `Inspect and manage Microsoft Entra ID sessions without an MCP host.

The commands operate against the same token cache as the daemon, so a
session created here is visible to connected MCP clients and vice
versa. Use --endpoint to target a sovereign cloud.`,
	}

	cmd.PersistentFlags().StringVar(&endpointValue, "endpoint", "",
		"Sovereign cloud name or authority URL (default: public cloud)")
	cmd.PersistentFlags().StringVar(&scopesValue, "scopes", "User.Read",
		"Requested scopes, space-separated")

	cmd.AddCommand(newSessionsListCmd(&endpointValue, &scopesValue))
	cmd.AddCommand(newSessionsCreateCmd(&endpointValue, &scopesValue))
	cmd.AddCommand(newSessionsRemoveCmd(&endpointValue))
	cmd.AddCommand(newSessionsTokenCmd(&endpointValue, &scopesValue))

	return cmd
}

// cliBroker builds a broker over a freshly initialized backend for one
// CLI invocation.
func cliBroker(cmd *cobra.Command, endpointValue string) (*broker.Broker, identity.Backend, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, _, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	desc := endpoint.Default()
	alternate := false
	if strings.TrimSpace(endpointValue) != "" {
		desc, err = endpoint.Resolve(endpointValue)
		if err != nil {
			return nil, nil, err
		}
		alternate = true
	}

	logger := logging.DefaultLogger()
	store, err := credstore.OpenDefaultStore(logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	cacheKey := "default"
	providerID := provider.DefaultProviderID
	if alternate {
		cacheKey = "alternate:" + desc.NormalizedURL
		providerID = provider.AlternateProviderID
	}

	backend := identity.NewMSALBackend(identity.MSALConfig{
		Endpoint:    desc.NormalizedURL,
		TenantID:    cfg.TenantID,
		ClientID:    cfg.ClientID,
		Cache:       credstore.NewCache(store, cacheKey, logger),
		Logger:      logger,
		OpenBrowser: cfg.OpenBrowser,
	})
	if err := backend.Initialize(cmd.Context()); err != nil {
		return nil, nil, err
	}

	return broker.New(backend, providerID, alternate), backend, nil
}

func splitScopes(raw string) []string {
	return strings.Fields(raw)
}

func newSessionsListCmd(endpointValue, scopesValue *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, backend, err := cliBroker(cmd, *endpointValue)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			sessions, err := b.GetSessions(cmd.Context(), splitScopes(*scopesValue))
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				cmd.Println("No sessions found")
				return nil
			}
			for _, s := range sessions {
				cmd.Printf("%s\t%s\texpires %s\n",
					s.ID, s.AccountLabel, s.Expiry.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newSessionsCreateCmd(endpointValue, scopesValue *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Sign in and create a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, backend, err := cliBroker(cmd, *endpointValue)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			session, err := b.CreateSession(cmd.Context(), splitScopes(*scopesValue))
			if err != nil {
				return err
			}
			cmd.Printf("Signed in as %s (session %s)\n", session.AccountLabel, session.ID)
			return nil
		},
	}
}

func newSessionsRemoveCmd(endpointValue *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <session-id>",
		Short: "Sign out of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, backend, err := cliBroker(cmd, *endpointValue)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			if err := b.RemoveSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Session %s removed\n", args[0])
			return nil
		},
	}
}

func newSessionsTokenCmd(endpointValue, scopesValue *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token <session-id>",
		Short: "Print a fresh access token for a session",
		Long: `Print an access token for the given session, acquiring it silently
through the cached refresh token. Suitable for piping into curl or
other tools.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, backend, err := cliBroker(cmd, *endpointValue)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			ts := identity.NewTokenSource(cmd.Context(), backend, args[0], splitScopes(*scopesValue))
			token, err := ts.Token()
			if err != nil {
				return err
			}
			cmd.Println(token.AccessToken)
			return nil
		},
	}
}
