// Package provider manages the lifetime of registered authentication
// providers.
//
// The default provider is registered once at startup and never rebuilt.
// The alternate (sovereign cloud) provider follows configuration: each
// change disposes the current alternate registration and backend
// completely, then resolves and activates the new endpoint. A single
// worker goroutine with a coalescing mailbox serializes changes, so
// rapid reconfiguration applies only the latest value and never leaves
// two alternate registrations live.
package provider
