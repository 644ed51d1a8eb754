package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorepolicy"
)

// navSeries builds a daily NAV series of length days starting at start,
// with values produced by fn(day).
func navSeries(start time.Time, days int, fn func(day int) float64) []contracts.NavObservation {
	navs := make([]contracts.NavObservation, 0, days)
	for d := 0; d < days; d++ {
		navs = append(navs, contracts.NavObservation{
			FundID: 1,
			Date:   start.AddDate(0, 0, d),
			Value:  fn(d),
			Source: contracts.ProvenancePrimary,
		})
	}
	return navs
}

func linearGrowth(from, to float64, days int) func(int) float64 {
	return func(d int) float64 {
		return from + (to-from)*float64(d)/float64(days)
	}
}

func TestOneYearReturn(t *testing.T) {
	calc := NewReturnsCalculator(scorepolicy.Default())

	// 100 -> 120 over exactly 365 days: a clean 20% one-year return.
	start := time.Date(2024, 8, 24, 0, 0, 0, 0, time.UTC)
	navs := navSeries(start, 366, linearGrowth(100, 120, 365))

	out := calc.Calculate(navs)

	oneY := out.Horizons["1y"]
	if oneY.ReturnPct == nil || oneY.Score == nil {
		t.Fatal("expected 1y horizon to be computed")
	}
	if math.Abs(*oneY.ReturnPct-20.0) > 1e-9 {
		t.Errorf("1y return = %v, want 20.0", *oneY.ReturnPct)
	}
	if *oneY.Score != 8.0 {
		t.Errorf("1y score = %v, want top tier 8.0", *oneY.Score)
	}

	// 3y and 5y need history this series does not have.
	for _, name := range []string{"3y", "5y"} {
		h := out.Horizons[name]
		if h.ReturnPct != nil || h.Score != nil {
			t.Errorf("%s horizon should be nil on one year of history", name)
		}
	}
}

func TestAnnualization(t *testing.T) {
	calc := NewReturnsCalculator(scorepolicy.Default())

	// 72.8% over three years compounds to 20% a year:
	// 1.2^3 = 1.728.
	start := time.Date(2022, 8, 24, 0, 0, 0, 0, time.UTC)
	growth := func(d int) float64 {
		return 100 * math.Pow(1.728, float64(d)/1095.0)
	}
	navs := navSeries(start, 1096, growth)

	out := calc.Calculate(navs)

	threeY := out.Horizons["3y"]
	if threeY.ReturnPct == nil {
		t.Fatal("expected 3y horizon to be computed")
	}
	if math.Abs(*threeY.ReturnPct-20.0) > 1e-6 {
		t.Errorf("3y annualized return = %v, want 20.0", *threeY.ReturnPct)
	}
	if *threeY.Score != 8.0 {
		t.Errorf("3y score = %v, want 8.0", *threeY.Score)
	}

	// The last year of the same series also grew 20%, reported as a
	// plain total return.
	oneY := out.Horizons["1y"]
	if oneY.ReturnPct == nil {
		t.Fatal("expected 1y horizon to be computed")
	}
	if math.Abs(*oneY.ReturnPct-20.0) > 1e-6 {
		t.Errorf("1y return = %v, want 20.0", *oneY.ReturnPct)
	}
}

func TestNegativeReturnScoresBelowZero(t *testing.T) {
	calc := NewReturnsCalculator(scorepolicy.Default())

	start := time.Date(2024, 8, 24, 0, 0, 0, 0, time.UTC)
	navs := navSeries(start, 366, linearGrowth(100, 90, 365))

	out := calc.Calculate(navs)

	oneY := out.Horizons["1y"]
	if oneY.ReturnPct == nil {
		t.Fatal("expected 1y horizon to be computed")
	}
	if math.Abs(*oneY.ReturnPct+10.0) > 1e-9 {
		t.Errorf("1y return = %v, want -10.0", *oneY.ReturnPct)
	}
	// -10% * 0.05/pct = -0.5, exactly at the floor.
	if *oneY.Score != -0.5 {
		t.Errorf("1y score = %v, want -0.5", *oneY.Score)
	}
}

func TestToleranceRejectsDistantObservation(t *testing.T) {
	calc := NewReturnsCalculator(scorepolicy.Default())

	// History starts 40 days after the 1y target: the nearest candidate
	// is outside the 20 day tolerance.
	start := time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC)
	navs := navSeries(start, 326, linearGrowth(100, 110, 325))

	out := calc.Calculate(navs)

	if h := out.Horizons["1y"]; h.ReturnPct != nil {
		t.Errorf("1y should be nil when the nearest observation is 40 days off target, got %v", *h.ReturnPct)
	}
	if h := out.Horizons["6m"]; h.ReturnPct == nil {
		t.Error("6m should still be computable")
	}
}

func TestYearToDate(t *testing.T) {
	calc := NewReturnsCalculator(scorepolicy.Default())

	// Jan 2025 through Mar 2026: YTD measures from Jan 1 2026.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	navs := navSeries(start, 455, func(d int) float64 { return 100 + 0.1*float64(d) })

	out := calc.Calculate(navs)

	ytd := out.Horizons["ytd"]
	if ytd.ReturnPct == nil {
		t.Fatal("expected ytd to be computed")
	}
	// 136.5 -> 145.4 is ~6.52%.
	if math.Abs(*ytd.ReturnPct-6.52) > 0.01 {
		t.Errorf("ytd return = %v, want ~6.52", *ytd.ReturnPct)
	}
	if *ytd.Score != 3.2 {
		t.Errorf("ytd score = %v, want 3.2", *ytd.Score)
	}
}

func TestComponentTotal(t *testing.T) {
	calc := NewReturnsCalculator(scorepolicy.Default())

	start := time.Date(2024, 8, 24, 0, 0, 0, 0, time.UTC)
	navs := navSeries(start, 366, linearGrowth(100, 120, 365))

	out := calc.Calculate(navs)

	// 1y=8.0, ytd=6.4, 6m=4.8, 3m=1.6; 3y and 5y missing contribute
	// nothing, not zero-scores.
	if math.Abs(out.Total-20.8) > 1e-9 {
		t.Errorf("total = %v, want 20.8", out.Total)
	}
}

func TestEmptySeries(t *testing.T) {
	calc := NewReturnsCalculator(scorepolicy.Default())

	out := calc.Calculate(nil)
	if out.Total != 0 {
		t.Errorf("total = %v, want 0", out.Total)
	}
	if len(out.Horizons) != 0 {
		t.Errorf("expected no horizons, got %d", len(out.Horizons))
	}
}
