package host

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruffsl/msauthd/internal/broker"
	"github.com/ruffsl/msauthd/internal/identity"
	"github.com/ruffsl/msauthd/internal/provider"
)

func newTestRegistrar(t *testing.T) (*MCPRegistrar, *mcpserver.MCPServer) {
	t.Helper()
	srv := mcpserver.NewMCPServer("msauthd-test", "0.0.0",
		mcpserver.WithToolCapabilities(true),
	)
	return NewMCPRegistrar(srv, nil), srv
}

func newHandler() provider.SessionHandler {
	return broker.New(identity.NewFakeBackend(), "microsoft", false)
}

func TestRegisterRejectsDuplicateLiveID(t *testing.T) {
	registrar, _ := newTestRegistrar(t)

	reg, err := registrar.Register("microsoft", "Microsoft", newHandler(), Options{})
	require.NoError(t, err)

	_, err = registrar.Register("microsoft", "Microsoft", newHandler(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	// After disposal the id can be reused.
	require.NoError(t, reg.Dispose())
	_, err = registrar.Register("microsoft", "Microsoft", newHandler(), Options{})
	assert.NoError(t, err)
}

func TestDisposeIsIdempotent(t *testing.T) {
	registrar, _ := newTestRegistrar(t)

	reg, err := registrar.Register("microsoft", "Microsoft", newHandler(), Options{})
	require.NoError(t, err)

	require.NoError(t, reg.Dispose())
	require.NoError(t, reg.Dispose())
	assert.Empty(t, registrar.LiveProviders())
}

func TestLiveProvidersTracksRegistrations(t *testing.T) {
	registrar, _ := newTestRegistrar(t)

	regDefault, err := registrar.Register("microsoft", "Microsoft", newHandler(), Options{})
	require.NoError(t, err)
	_, err = registrar.Register("microsoft-sovereign-cloud", "Azure China", newHandler(), Options{})
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"microsoft", "microsoft-sovereign-cloud"},
		registrar.LiveProviders())

	require.NoError(t, regDefault.Dispose())
	assert.Equal(t, []string{"microsoft-sovereign-cloud"}, registrar.LiveProviders())
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestHandleGetSessionsReturnsJSONWithoutTokens(t *testing.T) {
	backend := identity.NewFakeBackend()
	handler := broker.New(backend, "microsoft", false)
	session, err := handler.CreateSession(context.Background(), []string{"User.Read"})
	require.NoError(t, err)

	result, err := handleGetSessions(context.Background(), callRequest(map[string]interface{}{
		"scopes": "User.Read",
	}), handler)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := result.Content[0].(mcp.TextContent).Text
	var views []sessionView
	require.NoError(t, json.Unmarshal([]byte(text), &views))
	require.Len(t, views, 1)
	assert.Equal(t, session.ID, views[0].ID)
	assert.Empty(t, views[0].AccessToken, "list responses must not carry tokens")
}

func TestHandleCreateSessionReturnsToken(t *testing.T) {
	handler := newHandler()

	result, err := handleCreateSession(context.Background(), callRequest(map[string]interface{}{
		"scopes": "b a",
	}), handler)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var view sessionView
	text := result.Content[0].(mcp.TextContent).Text
	require.NoError(t, json.Unmarshal([]byte(text), &view))
	assert.Equal(t, []string{"a", "b"}, view.Scopes, "scopes are normalized before the backend")
	assert.NotEmpty(t, view.AccessToken)
}

func TestHandleCreateSessionReportsBackendError(t *testing.T) {
	backend := identity.NewFakeBackend()
	backend.CreateErr = errors.New("declined")
	handler := broker.New(backend, "microsoft", false)

	result, err := handleCreateSession(context.Background(), callRequest(nil), handler)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRemoveSessionValidatesArguments(t *testing.T) {
	handler := newHandler()

	result, err := handleRemoveSession(context.Background(), callRequest(map[string]interface{}{}), handler)
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = handleRemoveSession(context.Background(), callRequest(map[string]interface{}{
		"session_id": "missing",
	}), handler)
	require.NoError(t, err)
	assert.False(t, result.IsError, "removal failures are absorbed")
}

func TestScopesFromArgs(t *testing.T) {
	assert.Nil(t, scopesFromArgs(map[string]interface{}{}))
	assert.Nil(t, scopesFromArgs(map[string]interface{}{"scopes": 7}))
	assert.Empty(t, scopesFromArgs(map[string]interface{}{"scopes": "  "}))
	assert.Equal(t, []string{"a", "b"},
		scopesFromArgs(map[string]interface{}{"scopes": " a  b "}))
}
