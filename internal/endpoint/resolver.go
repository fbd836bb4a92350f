package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// Descriptor is a validated, normalized identity-endpoint selection.
// It is immutable once constructed.
type Descriptor struct {
	// RawValue is the configuration value the descriptor was resolved from.
	RawValue string

	// NormalizedURL is the validated endpoint URL, always terminated with "/".
	NormalizedURL string

	// DisplayName is the human-readable name shown for the provider bound
	// to this endpoint.
	DisplayName string
}

// InvalidEndpointError reports a configuration value that could not be
// resolved to a usable identity endpoint.
type InvalidEndpointError struct {
	Value string
	Err   error
}

func (e *InvalidEndpointError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid identity endpoint %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("invalid identity endpoint %q", e.Value)
}

func (e *InvalidEndpointError) Unwrap() error {
	return e.Err
}

// DefaultURL is the public cloud endpoint used by the default provider.
const DefaultURL = "https://login.microsoftonline.com/"

// Default returns the descriptor for the public cloud endpoint.
func Default() *Descriptor {
	return &Descriptor{
		NormalizedURL: DefaultURL,
		DisplayName:   "Microsoft",
	}
}

// Well-known sovereign cloud endpoints, selectable by name.
var sovereignClouds = map[string]Descriptor{
	"Azure China": {
		NormalizedURL: "https://login.chinacloudapi.cn/",
		DisplayName:   "Azure China",
	},
	"Azure US Government": {
		NormalizedURL: "https://login.microsoftonline.us/",
		DisplayName:   "Azure US Government",
	},
}

// Resolve turns a raw configuration value into an endpoint Descriptor.
//
// An empty (or all-whitespace) value resolves to (nil, nil): no alternate
// endpoint is configured. A value matching a well-known sovereign cloud name
// resolves to that cloud's fixed URL and display name. Any other value must
// be an absolute URI with a host; it is accepted verbatim, with a trailing
// slash appended when missing, and its authority used as the display name.
//
// Invalid values yield a *InvalidEndpointError carrying the offending value;
// callers surface it to the user and continue without an alternate endpoint.
func Resolve(raw string) (*Descriptor, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	if d, ok := sovereignClouds[value]; ok {
		d.RawValue = raw
		return &d, nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return nil, &InvalidEndpointError{Value: raw, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &InvalidEndpointError{Value: raw, Err: fmt.Errorf("not an absolute URI with a host")}
	}

	normalized := value
	if !strings.HasSuffix(normalized, "/") {
		normalized += "/"
	}

	return &Descriptor{
		RawValue:      raw,
		NormalizedURL: normalized,
		DisplayName:   u.Host,
	}, nil
}
