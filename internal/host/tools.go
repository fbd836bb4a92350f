package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ruffsl/msauthd/internal/identity"
	"github.com/ruffsl/msauthd/internal/provider"
)

type registeredTool struct {
	tool    mcp.Tool
	handler mcpserver.ToolHandlerFunc
}

// sessionView is the wire shape of a session. Tokens are omitted from
// list responses; only create returns one, to the caller that initiated
// the flow.
type sessionView struct {
	ID          string   `json:"id"`
	Account     string   `json:"account"`
	Scopes      []string `json:"scopes"`
	ExpiresAt   string   `json:"expiresAt,omitempty"`
	AccessToken string   `json:"accessToken,omitempty"`
}

func viewOf(s identity.Session, includeToken bool) sessionView {
	v := sessionView{
		ID:      s.ID,
		Account: s.AccountLabel,
		Scopes:  s.Scopes,
	}
	if !s.Expiry.IsZero() {
		v.ExpiresAt = s.Expiry.Format(time.RFC3339)
	}
	if includeToken {
		v.AccessToken = s.AccessToken
	}
	return v
}

func providerTools(id, displayName string, handler provider.SessionHandler, opts Options) []registeredTool {
	scopesDesc := "Requested scopes, space-separated (for example 'User.Read offline_access')."

	getTool := mcp.NewTool(id+"_get_sessions",
		mcp.WithDescription(fmt.Sprintf("List %s sessions currently available for the given scopes", displayName)),
		mcp.WithString("scopes", mcp.Description(scopesDesc)),
	)

	createTool := mcp.NewTool(id+"_create_session",
		mcp.WithDescription(fmt.Sprintf("Sign in to %s and create a new session", displayName)),
		mcp.WithString("scopes", mcp.Description(scopesDesc)),
	)

	removeTool := mcp.NewTool(id+"_remove_session",
		mcp.WithDescription(fmt.Sprintf("Sign out of a %s session", displayName)),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Id of the session to remove"),
		),
	)

	return []registeredTool{
		{getTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetSessions(ctx, request, handler)
		}},
		{createTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateSession(ctx, request, handler)
		}},
		{removeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRemoveSession(ctx, request, handler)
		}},
	}
}

// scopesFromArgs splits the space-separated scopes argument. A missing
// or empty argument means no scope filter.
func scopesFromArgs(args map[string]interface{}) []string {
	raw, ok := args["scopes"].(string)
	if !ok {
		return nil
	}
	return strings.Fields(raw)
}

func handleGetSessions(ctx context.Context, request mcp.CallToolRequest, handler provider.SessionHandler) (*mcp.CallToolResult, error) {
	scopes := scopesFromArgs(request.GetArguments())

	sessions, err := handler.GetSessions(ctx, scopes)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list sessions: %v", err)), nil
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, viewOf(s, false))
	}
	return jsonResult(views)
}

func handleCreateSession(ctx context.Context, request mcp.CallToolRequest, handler provider.SessionHandler) (*mcp.CallToolResult, error) {
	scopes := scopesFromArgs(request.GetArguments())

	session, err := handler.CreateSession(ctx, scopes)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create session: %v", err)), nil
	}
	return jsonResult(viewOf(session, true))
}

func handleRemoveSession(ctx context.Context, request mcp.CallToolRequest, handler provider.SessionHandler) (*mcp.CallToolResult, error) {
	id, ok := request.GetArguments()["session_id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	if err := handler.RemoveSession(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to remove session: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s removed", id)), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// RegisterProviderListTool adds a tool reporting which providers are
// currently registered. Registered once at startup, independent of
// provider lifecycle.
func RegisterProviderListTool(s *mcpserver.MCPServer, registrar *MCPRegistrar) {
	tool := mcp.NewTool("auth_providers",
		mcp.WithDescription("List the authentication providers currently available"),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(registrar.LiveProviders())
	})
}
