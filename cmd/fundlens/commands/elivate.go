package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/elivate"
)

// elivateCmd represents the elivate command
var elivateCmd = &cobra.Command{
	Use:   "elivate",
	Short: "ELIVATE market stance",
	Long: `Computes or shows the six-pillar ELIVATE market stance.

The stance is advisory context for readers of the scores; fund scores
never depend on it.

Subcommands:
  compute - compute and store the stance from the latest indicators
  show    - show the current stance

Example:
  go run ./cmd/fundlens elivate compute
  go run ./cmd/fundlens elivate compute --date 2025-06-30
  go run ./cmd/fundlens elivate show`,
}

var (
	elivateComputeCmd = &cobra.Command{
		Use:   "compute",
		Short: "Compute and store the market stance",
		RunE:  runElivateCompute,
	}

	elivateShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the current market stance",
		RunE:  runElivateShow,
	}
)

var elivateDate string

func init() {
	rootCmd.AddCommand(elivateCmd)
	elivateCmd.AddCommand(elivateComputeCmd)
	elivateCmd.AddCommand(elivateShowCmd)

	elivateComputeCmd.Flags().StringVar(&elivateDate, "date", "", "score date YYYY-MM-DD (default: today UTC)")
}

func runElivateCompute(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FundLens Market Stance ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext()
	defer cancel()

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if elivateDate != "" {
		parsed, err := time.ParseInLocation("2006-01-02", elivateDate, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", elivateDate)
		}
		date = parsed
	}

	service := elivate.NewService(elivate.NewRepository(d.db.Pool), d.log)

	score, err := service.ComputeAndStore(ctx, date)
	if err != nil {
		return fmt.Errorf("compute stance: %w", err)
	}

	PrintStance(score)
	return nil
}

func runElivateShow(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := signalContext()
	defer cancel()

	service := elivate.NewService(elivate.NewRepository(d.db.Pool), d.log)

	score, err := service.Current(ctx)
	if errors.Is(err, contracts.ErrNotFound) {
		fmt.Println("No market stance computed yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load stance: %w", err)
	}

	PrintStance(score)
	return nil
}
