// Package logging provides structured logging utilities for msauthd.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Security Considerations
//
// Account labels are hashed before logging to prevent PII leakage while
// still allowing correlation, and tokens are never logged directly.
package logging
