// Package cmd implements the command-line interface for msauthd.
//
// This package provides the following commands:
//   - serve: Start the MCP server that brokers Entra ID sessions
//   - sessions: List, create, remove sessions and print access tokens
//   - version: Display version information
package cmd
