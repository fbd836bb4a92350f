// Package identity defines the identity backend contract and its
// Microsoft Entra ID implementation.
//
// A Backend owns the accounts and tokens for exactly one identity
// endpoint. The MSAL-based backend lists sessions via silent token
// acquisition against cached accounts, creates sessions with the device
// code flow, and persists its token cache through a pluggable
// cache.ExportReplace. Endpoint changes are modeled as dispose-and-
// recreate, never mutation; a disposed backend answers late calls with
// ErrBackendClosed.
package identity
