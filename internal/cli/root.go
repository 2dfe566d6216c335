// Package cli holds the ranpulse cobra commands: the server, the terminal
// dashboard and the operator tools around it.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ranpulse/core-go/internal/config"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ranpulse",
	Short: "RAN network operations dashboard",
	Long: `ranpulse watches a radio access network: tower status from call
records, anomaly reports per cell, remediation progress and a merged live
event feed, served over HTTP and a websocket.

Data comes from Postgres, JSON (URL or file) or a generated mock network,
with automatic fallback when a source fails.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ranpulse %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./ranpulse.yaml or /etc/ranpulse/ranpulse.yaml)")
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
