// Package scopes canonicalizes requested permission scopes.
//
// Two independent transforms are applied to the same input: the protocol
// form (sorted, for stable session identity downstream) and the telemetry
// form (GUIDs redacted, serialized to one string). Neither transform
// mutates its input.
package scopes
