package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the msauthd application
var rootCmd = &cobra.Command{
	Use:   "msauthd",
	Short: "Microsoft Entra ID session broker for MCP hosts",
	Long: `msauthd brokers Microsoft Entra ID authentication sessions to MCP
(Model Context Protocol) hosts and to the command line.

It always exposes the default Microsoft provider and, when a sovereign
cloud endpoint is configured, a second provider bound to that endpoint.
Configuration changes swap the sovereign provider at runtime without
restarting the daemon.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "msauthd version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the msauthd config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
