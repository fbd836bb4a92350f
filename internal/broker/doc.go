// Package broker applies the session operation policy between hosts and
// identity backends.
//
// Listing is a pure passthrough. Creation normalizes scopes and lets
// backend errors reach the caller so the host can show them. Removal
// absorbs backend errors because a failed logout must never break the
// host. Every create and remove outcome produces exactly one telemetry
// event.
package broker
