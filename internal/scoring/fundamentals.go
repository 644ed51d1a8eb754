package scoring

import (
	"time"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorepolicy"
)

// FundamentalScores is the fundamentals component. A missing attribute
// earns the policy's neutral default and raises the matching Defaulted
// flag, so consumers can tell a scored value from a filled-in one.
type FundamentalScores struct {
	ExpenseScore float64
	AumScore     float64
	AgeScore     float64

	ExpenseDefaulted bool
	AumDefaulted     bool
	AgeDefaulted     bool

	Total float64
}

// FundamentalsCalculator scores expense ratio, AUM and fund age
// against the category-specific policy tables.
type FundamentalsCalculator struct {
	policy *scorepolicy.Policy
}

func NewFundamentalsCalculator(p *scorepolicy.Policy) *FundamentalsCalculator {
	return &FundamentalsCalculator{policy: p}
}

// Calculate scores the fund's master-data attributes as of asOf.
func (c *FundamentalsCalculator) Calculate(fund *contracts.Fund, asOf time.Time) FundamentalScores {
	f := c.policy.Fundamentals
	out := FundamentalScores{}

	if fund.ExpenseRatio != nil {
		out.ExpenseScore = f.ExpenseTable(fund.Category).Score(*fund.ExpenseRatio)
	} else {
		out.ExpenseScore = f.Defaults.ExpensePoints
		out.ExpenseDefaulted = true
	}

	if fund.AumCrores != nil {
		out.AumScore = f.AumTable(fund.Category).Score(*fund.AumCrores)
	} else {
		out.AumScore = f.Defaults.AumPoints
		out.AumDefaulted = true
	}

	if age := fund.AgeYears(asOf); age != nil {
		out.AgeScore = f.AgeTiers.Score(*age)
	} else {
		out.AgeScore = f.Defaults.AgePoints
		out.AgeDefaulted = true
	}

	out.Total = f.Bound.Clamp(out.ExpenseScore + out.AumScore + out.AgeScore)
	return out
}
