package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEmptyValue(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t"} {
		d, err := Resolve(raw)
		require.NoError(t, err)
		assert.Nil(t, d, "value %q should resolve to no endpoint", raw)
	}
}

func TestResolveSovereignCloudNames(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantURL     string
		wantDisplay string
	}{
		{
			name:        "azure china",
			raw:         "Azure China",
			wantURL:     "https://login.chinacloudapi.cn/",
			wantDisplay: "Azure China",
		},
		{
			name:        "azure us government",
			raw:         "Azure US Government",
			wantURL:     "https://login.microsoftonline.us/",
			wantDisplay: "Azure US Government",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Resolve(tt.raw)
			require.NoError(t, err)
			require.NotNil(t, d)
			assert.Equal(t, tt.wantURL, d.NormalizedURL)
			assert.Equal(t, tt.wantDisplay, d.DisplayName)
			assert.Equal(t, tt.raw, d.RawValue)
		})
	}
}

func TestResolveCustomURL(t *testing.T) {
	d, err := Resolve("https://login.example.com")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "https://login.example.com/", d.NormalizedURL)
	assert.Equal(t, "login.example.com", d.DisplayName)
}

func TestResolveKeepsExistingTrailingSlash(t *testing.T) {
	d, err := Resolve("https://login.example.com/")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "https://login.example.com/", d.NormalizedURL)
}

func TestResolveInvalidValues(t *testing.T) {
	for _, raw := range []string{
		"not a uri",
		"login.example.com",     // no scheme
		"https://",              // no host
		"/relative/path",        // relative
		"ht tp://bad.example",   // malformed scheme
	} {
		d, err := Resolve(raw)
		assert.Nil(t, d, "value %q should not resolve", raw)
		require.Error(t, err)

		var invalid *InvalidEndpointError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, raw, invalid.Value)
		assert.Contains(t, invalid.Error(), raw)
	}
}

func TestResolveTrimsWhitespace(t *testing.T) {
	d, err := Resolve("  Azure China  ")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "https://login.chinacloudapi.cn/", d.NormalizedURL)
}
