// Package server provides the daemon's HTTP sidecar: the Prometheus
// metrics listener and health probe endpoints. The MCP transport itself
// is stdio; this listener exists only for operators.
package server
