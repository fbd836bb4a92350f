package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Event is the name of a telemetry event. The taxonomy is fixed: every
// session operation outcome maps to exactly one of the constants below.
type Event string

// Default-provider events.
const (
	EventLogin        Event = "login"
	EventLoginFailed  Event = "loginFailed"
	EventLogout       Event = "logout"
	EventLogoutFailed Event = "logoutFailed"
)

// Alternate-provider (sovereign cloud) events.
const (
	EventLoginSovereign        Event = "loginSovereign"
	EventLoginFailedSovereign  Event = "loginFailedSovereign"
	EventLogoutSovereign       Event = "logoutSovereign"
	EventLogoutFailedSovereign Event = "logoutFailedSovereign"
)

// SchemaVersion is stamped on every event so downstream consumers can
// evolve their parsers.
const SchemaVersion = "1"

// Property keys shared by all events.
const (
	PropSchemaVersion = "schemaVersion"
	PropProvider      = "provider"
	PropScopes        = "scopes"
	PropErrorClass    = "errorClass"
)

var sovereignVariant = map[Event]Event{
	EventLogin:        EventLoginSovereign,
	EventLoginFailed:  EventLoginFailedSovereign,
	EventLogout:       EventLogoutSovereign,
	EventLogoutFailed: EventLogoutFailedSovereign,
}

// ForProvider maps a default-variant event to the alternate variant when
// alternate is true. Passing an already-alternate event returns it
// unchanged.
func ForProvider(base Event, alternate bool) Event {
	if !alternate {
		return base
	}
	if v, ok := sovereignVariant[base]; ok {
		return v
	}
	return base
}

// Props builds the base property set for an event. Scopes must already be
// in redacted telemetry form; raw scope values never reach a sink.
func Props(providerID, redactedScopes string) map[string]string {
	return map[string]string{
		PropProvider: providerID,
		PropScopes:   redactedScopes,
	}
}

// WithError adds the error class for a failure event. The original error
// text is deliberately not included; only a coarse classification leaves
// the process.
func WithError(props map[string]string, err error) map[string]string {
	props[PropErrorClass] = ErrorClass(err)
	return props
}

// ErrorClass reduces an error to a coarse, low-cardinality class name.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	// Fall back to the concrete type name, stripped of package paths and
	// pointer markers so the value stays stable across refactors.
	class := fmt.Sprintf("%T", err)
	class = strings.TrimPrefix(class, "*")
	if i := strings.LastIndex(class, "."); i >= 0 {
		class = class[i+1:]
	}
	if class == "errorString" || class == "wrapError" {
		return "generic"
	}
	return class
}
