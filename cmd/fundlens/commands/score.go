package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adivish/fundlens/internal/batch"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Run a scoring batch",
	Long: `Scores every fund (or a subset) for one date, then ranks the results.

This command:
- Loads each fund's scorable NAV history
- Computes return, risk, fundamentals and other-metrics components
- Upserts one score row per fund and date
- Ranks every subcategory and writes percentile, quartile and label

Ctrl+C aborts the run; already-scored funds stay checkpointed, so a
rerun with --resume picks up where it stopped.

Example:
  go run ./cmd/fundlens score
  go run ./cmd/fundlens score --date 2025-06-30
  go run ./cmd/fundlens score --funds 101,102,103 --workers 4
  go run ./cmd/fundlens score --date 2025-06-30 --resume`,
	RunE: runScore,
}

var (
	// Score flags
	scoreDate    string
	scoreFunds   []int64
	scoreWorkers int
	scoreRate    int
	scoreResume  bool
)

func init() {
	rootCmd.AddCommand(scoreCmd)

	// Flags
	scoreCmd.Flags().StringVar(&scoreDate, "date", "", "score date YYYY-MM-DD (default: latest NAV date)")
	scoreCmd.Flags().Int64SliceVar(&scoreFunds, "funds", nil, "restrict the run to these fund ids")
	scoreCmd.Flags().IntVar(&scoreWorkers, "workers", 0, "worker count (default: SCORING_WORKERS)")
	scoreCmd.Flags().IntVar(&scoreRate, "rate", -1, "max score writes per second, 0 disables (default: SCORING_WRITE_RATE)")
	scoreCmd.Flags().BoolVar(&scoreResume, "resume", false, "skip funds already checkpointed for the date")
}

func runScore(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FundLens Scoring Run ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	runCfg := batch.RunConfig{
		FundIDs:         scoreFunds,
		Trigger:         batch.TriggerCLI,
		Workers:         d.cfg.Scoring.Workers,
		BatchSize:       d.cfg.Scoring.BatchSize,
		WriteRatePerSec: d.cfg.Scoring.WriteRatePerSec,
		Resume:          scoreResume,
	}
	if scoreDate != "" {
		date, err := time.ParseInLocation("2006-01-02", scoreDate, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", scoreDate)
		}
		runCfg.ScoreDate = date
	}
	if scoreWorkers > 0 {
		runCfg.Workers = scoreWorkers
	}
	if scoreRate >= 0 {
		runCfg.WriteRatePerSec = scoreRate
	}

	ctx, cancel := signalContext()
	defer cancel()

	run, err := d.engine.Run(ctx, runCfg)
	if run != nil {
		PrintRunSummary(run)
	}
	if err != nil {
		return fmt.Errorf("scoring run: %w", err)
	}

	fmt.Println("\n✅ Scoring run completed")
	return nil
}
