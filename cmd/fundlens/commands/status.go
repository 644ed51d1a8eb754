package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent scoring runs",
	Long: `Shows the most recent scoring runs with their outcome counts.

A run stuck in "running" means the process died mid-run; rerun with
score --resume to finish it.

Example:
  go run ./cmd/fundlens status
  go run ./cmd/fundlens status --limit 10`,
	RunE: runStatus,
}

var statusLimit int

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusLimit, "limit", 5, "number of runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FundLens Run Status ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext()
	defer cancel()

	runs, err := d.runs.GetLatest(ctx, statusLimit)
	if err != nil {
		return fmt.Errorf("load runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("\nNo scoring runs recorded yet")
		return nil
	}

	fmt.Printf("\nLatest %d runs, newest first:\n", len(runs))
	for _, run := range runs {
		PrintRunSummary(run)
	}

	return nil
}
