// Package config loads daemon configuration with viper.
//
// Values come from msauthd.yaml, MSAUTHD_* environment variables, and
// built-in defaults. File watching is filtered to the sovereign
// endpoint key so unrelated edits never trigger provider
// reconfiguration.
package config
