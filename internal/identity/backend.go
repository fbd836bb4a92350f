package identity

import (
	"context"
	"errors"
	"time"
)

// Errors returned by identity backends.
var (
	// ErrBackendClosed is returned by any operation dispatched to a backend
	// after Close began. A call racing disposal completes with this error
	// instead of crashing.
	ErrBackendClosed = errors.New("identity backend is closed")

	// ErrSessionNotFound is returned when a session id does not match any
	// cached account.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotInteractive is returned when session creation needs user
	// interaction but no interactive terminal is available.
	ErrNotInteractive = errors.New("session creation requires an interactive terminal")
)

// Session is one authenticated account bound to a set of granted scopes.
// Sessions are created and destroyed by the identity backend; the broker
// only forwards them.
type Session struct {
	// ID uniquely identifies the session (the backend's home account id).
	ID string

	// AccountLabel is the human-readable account name (typically a UPN).
	AccountLabel string

	// Scopes are the granted scopes, in the order the backend reported them.
	Scopes []string

	// AccessToken is the current access token for the session.
	AccessToken string

	// Expiry is when AccessToken expires.
	Expiry time.Time
}

// ChangeKind describes what happened to a session.
type ChangeKind int

const (
	// SessionAdded indicates a session was created.
	SessionAdded ChangeKind = iota

	// SessionRemoved indicates a session was removed.
	SessionRemoved
)

// SessionChange is one entry on a backend's change stream.
type SessionChange struct {
	Kind    ChangeKind
	Session Session
}

// Backend is the contract every identity backend implements. One backend
// instance is bound to exactly one identity endpoint; swapping endpoints
// means disposing the backend and constructing a new one.
//
// The change stream has a single consumer (the broker wrapping the
// backend) and is never closed; consumers stop reading when the backend
// owner disposes them.
type Backend interface {
	// Initialize prepares the backend (cache hydration, client setup).
	Initialize(ctx context.Context) error

	// GetSessions returns the sessions currently available for the given
	// scopes. Scopes are passed through as received.
	GetSessions(ctx context.Context, scopes []string) ([]Session, error)

	// CreateSession interactively authenticates a new session for the
	// given scopes.
	CreateSession(ctx context.Context, scopes []string) (Session, error)

	// RemoveSessionByID removes the session with the given id.
	RemoveSessionByID(ctx context.Context, id string) error

	// SessionsChanged exposes the backend's session change stream.
	SessionsChanged() <-chan SessionChange

	// Close disposes the backend. Idempotent. Operations dispatched after
	// Close return ErrBackendClosed.
	Close() error
}
