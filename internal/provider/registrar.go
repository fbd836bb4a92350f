package provider

import (
	"context"

	"github.com/ruffsl/msauthd/internal/identity"
)

// SessionHandler is the capability surface a registered provider exposes
// to its host. The broker implements it.
type SessionHandler interface {
	GetSessions(ctx context.Context, scopes []string) ([]identity.Session, error)
	CreateSession(ctx context.Context, scopes []string) (identity.Session, error)
	RemoveSession(ctx context.Context, id string) error
	SessionsChanged() <-chan identity.SessionChange
}

// Options carries registration options beyond the identity itself.
type Options struct {
	// SupportsMultipleAccounts allows more than one concurrent session
	// per provider.
	SupportsMultipleAccounts bool
}

// Registration is a live provider registration. Dispose deregisters it;
// after Dispose returns the host no longer routes requests to the
// handler.
type Registration interface {
	Dispose() error
}

// Registrar registers authentication providers with a host. Registering
// an id that is already live is an error.
type Registrar interface {
	Register(id, displayName string, handler SessionHandler, opts Options) (Registration, error)
}
