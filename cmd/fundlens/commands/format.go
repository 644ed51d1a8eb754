package commands

import (
	"fmt"
	"time"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/elivate"
)

// Common formatting utilities so every command prints the same layout.

const separatorLine = "───────────────────────────────────────────────────────────"

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println(separatorLine)
}

// PrintRunSummary prints one scoring run in the shared column layout
func PrintRunSummary(run *contracts.RunSummary) {
	fmt.Println()
	PrintSeparator()
	fmt.Printf("  Run       : %s\n", run.RunID)
	fmt.Printf("  Date      : %s\n", run.ScoreDate.Format("2006-01-02"))
	fmt.Printf("  Status    : %s\n", run.Status)
	fmt.Printf("  Trigger   : %s\n", run.Trigger)
	fmt.Printf("  Funds     : %d processed (%d scored, %d excluded, %d failed)\n",
		run.FundsProcessed, run.FundsScored, run.FundsExcluded, run.FundsFailed)
	fmt.Printf("  Groups    : %d ranked, %d below minimum peer count\n",
		run.GroupsRanked, run.GroupsSkipped)
	fmt.Printf("  Policy    : %s (%s)\n", run.PolicyVersion, ShortHash(run.PolicyHash))
	fmt.Printf("  Duration  : %s\n", run.Duration().Round(time.Millisecond))
	if run.Error != "" {
		fmt.Printf("  Error     : %s\n", run.Error)
	}
	PrintSeparator()
}

// PrintStance prints the six ELIVATE pillars and the stance
func PrintStance(score *elivate.Score) {
	fmt.Println()
	PrintSeparator()
	fmt.Printf("  Date                 : %s\n", score.ScoreDate.Format("2006-01-02"))
	fmt.Printf("  External influence   : %6.2f / 20\n", score.ExternalInfluence)
	fmt.Printf("  Local story          : %6.2f / 20\n", score.LocalStory)
	fmt.Printf("  Inflation and rates  : %6.2f / 20\n", score.InflationRates)
	fmt.Printf("  Valuation, earnings  : %6.2f / 20\n", score.ValuationEarnings)
	fmt.Printf("  Allocation of capital: %6.2f / 10\n", score.AllocationCapital)
	fmt.Printf("  Trends and sentiment : %6.2f / 10\n", score.TrendsSentiments)
	PrintSeparator()
	fmt.Printf("  Total                : %6.2f / 100 (%s)\n", score.Total, score.Stance)
	PrintSeparator()
}

// ShortHash truncates a policy hash for display
func ShortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
