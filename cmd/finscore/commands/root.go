package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string
	verbose  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "finscore",
	Short: "finscore - peer-relative financial health score",
	Long: `finscore Unified CLI

Scores a company's financial health against its sector peers
using data from Financial Modeling Prep.

Usage:
  go run ./cmd/finscore [command]

Examples:
  go run ./cmd/finscore api
  go run ./cmd/finscore analyze AAPL
  go run ./cmd/finscore validate AAPL MSFT XXXX
  go run ./cmd/finscore cache sweep
  go run ./cmd/finscore migrate`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
