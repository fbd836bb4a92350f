// Package credstore persists MSAL token caches across restarts.
//
// The primary store is the OS keyring; hosts without one (headless
// Linux, CI) fall back to 0600 files under the user cache dir. The
// Cache type adapts either store to MSAL's cache.ExportReplace, one
// namespaced instance per provider so sovereign cloud tokens never mix
// with default cloud tokens.
package credstore
