package scopes

import (
	"regexp"
	"sort"
	"strings"
)

// GUIDPlaceholder replaces GUID-shaped substrings in telemetry output so
// that tenant and application identifiers never leave the process.
const GUIDPlaceholder = "{guid}"

// guidPattern matches the canonical 8-4-4-4-12 hex GUID shape.
var guidPattern = regexp.MustCompile(`[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}`)

// Protocol returns the canonical protocol-ordered form of the requested
// scopes: a sorted copy in ascending lexicographic order. Session identity
// and caching downstream are sensitive to scope order, so every request
// must present scopes canonically regardless of caller order. The input
// slice is never mutated.
func Protocol(requested []string) []string {
	out := make([]string, len(requested))
	copy(out, requested)
	sort.Strings(out)
	return out
}

// RedactGUIDs replaces every GUID-shaped substring in a single scope with
// GUIDPlaceholder, leaving the rest of the scope unchanged.
func RedactGUIDs(scope string) string {
	return guidPattern.ReplaceAllString(scope, GUIDPlaceholder)
}

// TelemetryValue serializes the requested scopes into the single redacted
// string recorded on telemetry events. The input slice is never mutated.
func TelemetryValue(requested []string) string {
	redacted := make([]string, len(requested))
	for i, s := range requested {
		redacted[i] = RedactGUIDs(s)
	}
	return strings.Join(redacted, " ")
}
