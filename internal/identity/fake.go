package identity

import (
	"context"
	"fmt"
	"sync"
)

// FakeBackend is an in-memory Backend for tests and local development.
// Behavior can be overridden per call via the error fields.
type FakeBackend struct {
	mu       sync.Mutex
	sessions []Session
	closed   bool
	nextID   int
	changes  chan SessionChange

	// InitializeErr, GetErr, CreateErr and RemoveErr force the
	// corresponding operation to fail.
	InitializeErr error
	GetErr        error
	CreateErr     error
	RemoveErr     error

	// CreateCalls and RemoveCalls count invocations that passed the
	// closed check.
	CreateCalls int
	RemoveCalls int
}

// NewFakeBackend returns an empty fake.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{changes: make(chan SessionChange, changeBuffer)}
}

func (f *FakeBackend) Initialize(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrBackendClosed
	}
	return f.InitializeErr
}

func (f *FakeBackend) GetSessions(_ context.Context, scopes []string) ([]Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrBackendClosed
	}
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return append([]Session(nil), f.sessions...), nil
}

func (f *FakeBackend) CreateSession(_ context.Context, scopes []string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Session{}, ErrBackendClosed
	}
	f.CreateCalls++
	if f.CreateErr != nil {
		return Session{}, f.CreateErr
	}
	f.nextID++
	session := Session{
		ID:           fmt.Sprintf("fake-%d", f.nextID),
		AccountLabel: "user@example.com",
		Scopes:       append([]string(nil), scopes...),
		AccessToken:  "fake-token",
	}
	f.sessions = append(f.sessions, session)
	select {
	case f.changes <- SessionChange{Kind: SessionAdded, Session: session}:
	default:
	}
	return session, nil
}

func (f *FakeBackend) RemoveSessionByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrBackendClosed
	}
	f.RemoveCalls++
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	for i, s := range f.sessions {
		if s.ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			select {
			case f.changes <- SessionChange{Kind: SessionRemoved, Session: s}:
			default:
			}
			return nil
		}
	}
	return ErrSessionNotFound
}

func (f *FakeBackend) SessionsChanged() <-chan SessionChange {
	return f.changes
}

func (f *FakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Seed installs sessions directly, bypassing CreateSession.
func (f *FakeBackend) Seed(sessions ...Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessions...)
}

// Closed reports whether Close has been called.
func (f *FakeBackend) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
