package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Re-rank stored scores",
	Long: `Ranks already-stored score rows for one date without rescoring.

Useful after a rank phase failure or a label threshold change: score
rows stay untouched, only ranking fields and recommendations are
rewritten.

Example:
  go run ./cmd/fundlens rank
  go run ./cmd/fundlens rank --date 2025-06-30`,
	RunE: runRank,
}

var rankDate string

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVar(&rankDate, "date", "", "score date YYYY-MM-DD (default: latest NAV date)")
}

func runRank(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FundLens Rank Phase ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext()
	defer cancel()

	date, err := resolveDate(ctx, d, rankDate)
	if err != nil {
		return err
	}

	fmt.Printf("Ranking scores for %s...\n", date.Format("2006-01-02"))

	ranked, skipped, err := d.engine.Rank(ctx, date)
	if err != nil {
		return fmt.Errorf("rank: %w", err)
	}

	fmt.Printf("\n✅ Ranked %d groups (%d below minimum peer count)\n", ranked, skipped)
	return nil
}
