package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeBackendLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := NewFakeBackend()
	require.NoError(t, backend.Initialize(ctx))

	session, err := backend.CreateSession(ctx, []string{"User.Read"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, []string{"User.Read"}, session.Scopes)

	sessions, err := backend.GetSessions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)

	require.NoError(t, backend.RemoveSessionByID(ctx, session.ID))
	sessions, err = backend.GetSessions(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestFakeBackendChangeStream(t *testing.T) {
	ctx := context.Background()
	backend := NewFakeBackend()

	session, err := backend.CreateSession(ctx, []string{"User.Read"})
	require.NoError(t, err)

	select {
	case change := <-backend.SessionsChanged():
		assert.Equal(t, SessionAdded, change.Kind)
		assert.Equal(t, session.ID, change.Session.ID)
	case <-time.After(time.Second):
		t.Fatal("no change event after CreateSession")
	}

	require.NoError(t, backend.RemoveSessionByID(ctx, session.ID))
	select {
	case change := <-backend.SessionsChanged():
		assert.Equal(t, SessionRemoved, change.Kind)
	case <-time.After(time.Second):
		t.Fatal("no change event after RemoveSessionByID")
	}
}

func TestBackendClosedSemantics(t *testing.T) {
	ctx := context.Background()
	backend := NewFakeBackend()
	require.NoError(t, backend.Close())

	_, err := backend.GetSessions(ctx, nil)
	assert.ErrorIs(t, err, ErrBackendClosed)

	_, err = backend.CreateSession(ctx, nil)
	assert.ErrorIs(t, err, ErrBackendClosed)

	assert.ErrorIs(t, backend.RemoveSessionByID(ctx, "x"), ErrBackendClosed)
	assert.ErrorIs(t, backend.Initialize(ctx), ErrBackendClosed)

	// Close is idempotent.
	require.NoError(t, backend.Close())
}

func TestRemoveUnknownSession(t *testing.T) {
	backend := NewFakeBackend()
	err := backend.RemoveSessionByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMSALBackendClosedBeforeInitialize(t *testing.T) {
	backend := NewMSALBackend(MSALConfig{Endpoint: "https://login.microsoftonline.com/"})
	require.NoError(t, backend.Close())
	assert.ErrorIs(t, backend.Initialize(context.Background()), ErrBackendClosed)
}

func TestMSALBackendRequiresInitialize(t *testing.T) {
	backend := NewMSALBackend(MSALConfig{Endpoint: "https://login.microsoftonline.com/"})
	_, err := backend.GetSessions(context.Background(), []string{"User.Read"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBackendClosed)
}

func TestMSALConfigDefaults(t *testing.T) {
	backend := NewMSALBackend(MSALConfig{Endpoint: "https://login.microsoftonline.com/"})
	b, ok := backend.(*msalBackend)
	require.True(t, ok)
	assert.Equal(t, DefaultTenant, b.cfg.TenantID)
	assert.Equal(t, DefaultClientID, b.cfg.ClientID)
}

func TestStaticTokenSource(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	ts := StaticTokenSource(Session{AccessToken: "tok", Expiry: expiry})

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, expiry, token.Expiry)
}

func TestBackendTokenSource(t *testing.T) {
	ctx := context.Background()
	backend := NewFakeBackend()
	session, err := backend.CreateSession(ctx, []string{"User.Read"})
	require.NoError(t, err)

	ts := NewTokenSource(ctx, backend, session.ID, session.Scopes)
	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fake-token", token.AccessToken)

	missing := NewTokenSource(ctx, backend, "missing", session.Scopes)
	_, err = missing.Token()
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBackendTokenSourcePropagatesBackendErrors(t *testing.T) {
	backend := NewFakeBackend()
	backend.GetErr = errors.New("boom")

	ts := NewTokenSource(context.Background(), backend, "id", nil)
	_, err := ts.Token()
	assert.EqualError(t, err, "boom")
}
