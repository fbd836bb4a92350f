package identity

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
	"github.com/mattn/go-isatty"
	"github.com/pkg/browser"

	"github.com/ruffsl/msauthd/internal/logging"
)

const (
	// DefaultClientID is the Azure CLI public client id, usable with any
	// tenant without app registration.
	DefaultClientID = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"

	// DefaultTenant signs in work and school accounts from any tenant.
	DefaultTenant = "organizations"

	// deviceCodeTimeout bounds how long we wait for the user to complete
	// the device code flow.
	deviceCodeTimeout = 15 * time.Minute

	changeBuffer = 16
)

// MSALConfig configures an Entra ID backend.
type MSALConfig struct {
	// Endpoint is the normalized identity endpoint URL, with trailing
	// slash (for example "https://login.microsoftonline.com/").
	Endpoint string

	// TenantID selects the tenant; defaults to DefaultTenant.
	TenantID string

	// ClientID is the public client application id; defaults to
	// DefaultClientID.
	ClientID string

	// Cache persists the token cache across restarts. Optional.
	Cache cache.ExportReplace

	// Logger for backend diagnostics. Optional.
	Logger logging.Logger

	// OpenBrowser launches the verification URL during device code flow.
	OpenBrowser bool
}

// msalBackend implements Backend on top of the MSAL public client.
type msalBackend struct {
	cfg    MSALConfig
	logger logging.Logger

	mu      sync.RWMutex
	client  public.Client
	ready   bool
	closed  bool
	changes chan SessionChange
}

// NewMSALBackend builds a backend bound to one identity endpoint. The
// client itself is constructed in Initialize so construction never does
// I/O.
func NewMSALBackend(cfg MSALConfig) Backend {
	if cfg.TenantID == "" {
		cfg.TenantID = DefaultTenant
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &msalBackend{
		cfg:     cfg,
		logger:  logger,
		changes: make(chan SessionChange, changeBuffer),
	}
}

func (b *msalBackend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	if b.ready {
		return nil
	}

	authority := b.cfg.Endpoint + b.cfg.TenantID
	opts := []public.Option{public.WithAuthority(authority)}
	if b.cfg.Cache != nil {
		opts = append(opts, public.WithCache(b.cfg.Cache))
	}

	client, err := public.New(b.cfg.ClientID, opts...)
	if err != nil {
		return fmt.Errorf("creating MSAL client for %s: %w", authority, err)
	}

	b.client = client
	b.ready = true
	b.logger.Debug("identity backend initialized",
		logging.KeyEndpoint, b.cfg.Endpoint,
		"tenant", b.cfg.TenantID,
		"client_id", b.cfg.ClientID)
	return nil
}

func (b *msalBackend) snapshot() (public.Client, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return public.Client{}, ErrBackendClosed
	}
	if !b.ready {
		return public.Client{}, fmt.Errorf("identity backend not initialized")
	}
	return b.client, nil
}

func (b *msalBackend) GetSessions(ctx context.Context, scopes []string) ([]Session, error) {
	client, err := b.snapshot()
	if err != nil {
		return nil, err
	}

	accounts, err := client.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cached accounts: %w", err)
	}

	sessions := make([]Session, 0, len(accounts))
	for _, account := range accounts {
		result, err := client.AcquireTokenSilent(ctx, scopes, public.WithSilentAccount(account))
		if err != nil {
			// Account exists but cannot satisfy these scopes silently.
			// It is not a session for this request.
			b.logger.Debug("silent acquisition failed",
				logging.KeyAccount, logging.AnonymizeAccount(account.PreferredUsername),
				logging.KeyError, err)
			continue
		}
		sessions = append(sessions, sessionFromResult(result))
	}
	return sessions, nil
}

func (b *msalBackend) CreateSession(ctx context.Context, scopes []string) (Session, error) {
	client, err := b.snapshot()
	if err != nil {
		return Session{}, err
	}

	if !isInteractive() {
		return Session{}, ErrNotInteractive
	}

	authCtx, cancel := context.WithTimeout(ctx, deviceCodeTimeout)
	defer cancel()

	deviceCode, err := client.AcquireTokenByDeviceCode(authCtx, scopes)
	if err != nil {
		return Session{}, fmt.Errorf("starting device code flow: %w", err)
	}

	b.promptDeviceCode(deviceCode.Result.UserCode, deviceCode.Result.VerificationURL)

	result, err := deviceCode.AuthenticationResult(authCtx)
	if err != nil {
		return Session{}, fmt.Errorf("device code authentication: %w", err)
	}

	session := sessionFromResult(result)
	b.emit(SessionChange{Kind: SessionAdded, Session: session})
	b.logger.Info("session created",
		logging.KeySessionID, session.ID,
		logging.KeyAccount, logging.AnonymizeAccount(session.AccountLabel))
	return session, nil
}

func (b *msalBackend) RemoveSessionByID(ctx context.Context, id string) error {
	client, err := b.snapshot()
	if err != nil {
		return err
	}

	accounts, err := client.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("listing cached accounts: %w", err)
	}

	for _, account := range accounts {
		if account.HomeAccountID != id {
			continue
		}
		if err := client.RemoveAccount(ctx, account); err != nil {
			return fmt.Errorf("removing account: %w", err)
		}
		b.emit(SessionChange{Kind: SessionRemoved, Session: Session{
			ID:           id,
			AccountLabel: account.PreferredUsername,
		}})
		b.logger.Info("session removed", logging.KeySessionID, id)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

func (b *msalBackend) SessionsChanged() <-chan SessionChange {
	return b.changes
}

func (b *msalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// emit delivers a change without blocking. Events are dropped when the
// consumer lags or the backend is closed; the change stream is advisory.
func (b *msalBackend) emit(change SessionChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.changes <- change:
	default:
	}
}

func (b *msalBackend) promptDeviceCode(userCode, verificationURL string) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Authentication required")
	fmt.Fprintf(os.Stderr, "  Code: %s\n", userCode)
	fmt.Fprintf(os.Stderr, "  URL:  %s\n", verificationURL)
	fmt.Fprintln(os.Stderr)

	if b.cfg.OpenBrowser && verificationURL != "" {
		// Entra ID pre-fills the code via the otc query parameter.
		if err := browser.OpenURL(fmt.Sprintf("%s?otc=%s", verificationURL, userCode)); err != nil {
			b.logger.Debug("failed to open browser", logging.KeyError, err)
		}
	}
}

func sessionFromResult(result public.AuthResult) Session {
	return Session{
		ID:           result.Account.HomeAccountID,
		AccountLabel: result.Account.PreferredUsername,
		Scopes:       append([]string(nil), result.GrantedScopes...),
		AccessToken:  result.AccessToken,
		Expiry:       result.ExpiresOn,
	}
}

// isInteractive reports whether stderr is a terminal. Device code flow
// needs one so the user can see the verification prompt.
func isInteractive() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}
