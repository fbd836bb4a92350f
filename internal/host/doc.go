// Package host bridges authentication providers to MCP clients.
//
// The MCPRegistrar implements the provider registrar contract on top of
// an MCP server: registering a provider adds its session tools, and
// disposing the registration deletes them, so tool availability always
// mirrors the live provider set.
package host
