package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["sessions"])
	assert.True(t, names["version"])
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")

	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	assert.Equal(t, "msauthd version 1.2.3\n", out.String())
}

func TestServeCommandFlags(t *testing.T) {
	cmd := newServeCmd()
	for _, flag := range []string{"debug", "sovereign-endpoint", "metrics", "metrics-addr"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "missing flag %s", flag)
	}
}

func TestSessionsCommandStructure(t *testing.T) {
	cmd := newSessionsCmd()

	require.NotNil(t, cmd.PersistentFlags().Lookup("endpoint"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("scopes"))

	subs := map[string]bool{}
	for _, c := range cmd.Commands() {
		subs[c.Name()] = true
	}
	for _, name := range []string{"list", "create", "remove", "token"} {
		assert.True(t, subs[name], "missing subcommand %s", name)
	}
}

func TestSplitScopes(t *testing.T) {
	assert.Empty(t, splitScopes(""))
	assert.Equal(t, []string{"User.Read", "offline_access"}, splitScopes(" User.Read  offline_access "))
}
