package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanctl",
		Short: "FireScanner command line",
		Long: `FireScanner command line tools.

Runs one-shot venue scans against the configured sources and checks
scoring rules files before they are deployed.

Examples:
  scanctl scan --venue sample_venue --timeframe 4h
  scanctl rules check scoring_rules.yaml`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	return cmd
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newRulesCmd())
}
