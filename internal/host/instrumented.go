package host

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ruffsl/msauthd/internal/instrumentation"
)

// InstrumentedToolHandler wraps a tool handler with invocation metrics.
// A tool result flagged as an error counts as an error even when the
// handler returns nil, since session operation failures are reported
// in-band.
func InstrumentedToolHandler(
	toolName string,
	metrics *instrumentation.Metrics,
	handler mcpserver.ToolHandlerFunc,
) mcpserver.ToolHandlerFunc {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, request)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}
		metrics.RecordToolInvocation(ctx, toolName, status, time.Since(start))

		return result, err
	}
}
