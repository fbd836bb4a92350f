package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/ruffsl/msauthd/internal/identity"
	"github.com/ruffsl/msauthd/internal/logging"
)

// Configuration keys.
const (
	// KeySovereignEndpoint selects the alternate provider's endpoint:
	// a sovereign cloud name or a custom authority URL. Empty disables
	// the alternate provider.
	KeySovereignEndpoint = "sovereign.endpoint"

	KeyTenant      = "auth.tenant"
	KeyClientID    = "auth.client_id"
	KeyOpenBrowser = "auth.open_browser"
	KeyMetricsAddr = "metrics.addr"
)

// envKeyReplacer maps config keys to environment names, for example
// sovereign.endpoint to MSAUTHD_SOVEREIGN_ENDPOINT.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Config is the resolved daemon configuration.
type Config struct {
	// SovereignEndpoint is the raw alternate endpoint value, passed to
	// endpoint.Resolve unmodified.
	SovereignEndpoint string

	TenantID    string
	ClientID    string
	OpenBrowser bool

	// MetricsAddr is the listen address for the Prometheus endpoint.
	MetricsAddr string
}

// Load reads configuration from the given file, the default search
// paths, and MSAUTHD_* environment variables. A missing config file is
// not an error; everything has a default.
func Load(configFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("msauthd")
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "msauthd"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MSAUTHD")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	v.SetDefault(KeySovereignEndpoint, "")
	v.SetDefault(KeyTenant, identity.DefaultTenant)
	v.SetDefault(KeyClientID, identity.DefaultClientID)
	v.SetDefault(KeyOpenBrowser, true)
	v.SetDefault(KeyMetricsAddr, ":9464")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return fromViper(v), v, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		SovereignEndpoint: v.GetString(KeySovereignEndpoint),
		TenantID:          v.GetString(KeyTenant),
		ClientID:          v.GetString(KeyClientID),
		OpenBrowser:       v.GetBool(KeyOpenBrowser),
		MetricsAddr:       v.GetString(KeyMetricsAddr),
	}
}

// WatchEndpoint invokes onChange with the new sovereign endpoint value
// whenever the config file changes it. Edits to unrelated keys are
// ignored, so they never churn the provider lifecycle.
func WatchEndpoint(v *viper.Viper, logger logging.Logger, onChange func(raw string)) {
	v.OnConfigChange(endpointFilter(v, logger, onChange))
	v.WatchConfig()
}

// endpointFilter builds the change handler for WatchEndpoint. Split out
// so the filtering can be tested without a real filesystem watcher.
func endpointFilter(v *viper.Viper, logger logging.Logger, onChange func(raw string)) func(fsnotify.Event) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	var mu sync.Mutex
	last := v.GetString(KeySovereignEndpoint)

	return func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		current := v.GetString(KeySovereignEndpoint)
		if current == last {
			logger.Debug("config changed without endpoint update", "file", e.Name)
			return
		}
		last = current
		logger.Info("sovereign endpoint configuration changed")
		onChange(current)
	}
}
