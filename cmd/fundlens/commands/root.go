package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fundlens",
	Short: "FundLens - mutual fund scoring and peer ranking",
	Long: `FundLens scoring backend CLI

Scores every fund's NAV history into a 0-100 composite, ranks funds
against their subcategory peers, and serves the results over HTTP.

Usage:
  go run ./cmd/fundlens [command]

Examples:
  go run ./cmd/fundlens score --date 2025-06-30
  go run ./cmd/fundlens verify --date 2025-06-30
  go run ./cmd/fundlens policy show
  go run ./cmd/fundlens api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging regardless of LOG_LEVEL")
}
