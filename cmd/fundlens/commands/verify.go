package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adivish/fundlens/internal/scorestore"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check stored scores against the scoring invariants",
	Long: `Rechecks every stored score row for one date: component arithmetic,
score bounds, ranking consistency within each subcategory, and label
derivation.

Exits non-zero when violations are found, so it can gate a deploy or
run from cron after the daily batch.

Example:
  go run ./cmd/fundlens verify
  go run ./cmd/fundlens verify --date 2025-06-30`,
	RunE: runVerify,
}

var verifyDate string

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyDate, "date", "", "score date YYYY-MM-DD (default: latest NAV date)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FundLens Integrity Check ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext()
	defer cancel()

	date, err := resolveDate(ctx, d, verifyDate)
	if err != nil {
		return err
	}

	fmt.Printf("Verifying scores for %s...\n", date.Format("2006-01-02"))

	verifier := scorestore.NewVerifier(d.scores, d.policy, d.log)
	violations, err := verifier.Verify(ctx, date)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	if len(violations) == 0 {
		fmt.Println("\n✅ Clean: every stored row satisfies the scoring invariants")
		return nil
	}

	fmt.Printf("\n❌ %d violations found:\n\n", len(violations))
	for _, v := range violations {
		fmt.Printf("  - %s\n", v)
	}

	return fmt.Errorf("%d integrity violations on %s", len(violations), date.Format("2006-01-02"))
}
