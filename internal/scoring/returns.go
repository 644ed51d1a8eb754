package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorepolicy"
)

// HorizonResult is one horizon's outcome. Both fields are nil when the
// fund's history cannot support the horizon; a missing return is never
// reported as zero.
type HorizonResult struct {
	ReturnPct *float64
	Score     *float64
}

// ReturnScores is the historical-returns component for one fund.
type ReturnScores struct {
	Horizons map[string]HorizonResult
	Total    float64
}

// ReturnsCalculator scores NAV history over the policy's horizons.
type ReturnsCalculator struct {
	policy *scorepolicy.Policy
}

func NewReturnsCalculator(p *scorepolicy.Policy) *ReturnsCalculator {
	return &ReturnsCalculator{policy: p}
}

// Calculate computes per-horizon returns from a NAV series sorted by
// date ascending. Returns longer than a year are annualized over the
// actual day span between the two observations before scoring.
func (c *ReturnsCalculator) Calculate(navs []contracts.NavObservation) ReturnScores {
	out := ReturnScores{Horizons: make(map[string]HorizonResult, len(c.policy.Returns.Horizons))}
	if len(navs) == 0 {
		return out
	}

	latest := navs[len(navs)-1]
	sum := 0.0

	for _, h := range c.policy.Returns.Horizons {
		res := c.horizon(navs, latest, h)
		out.Horizons[h.Name] = res
		if res.Score != nil {
			sum += *res.Score
		}
	}

	out.Total = c.policy.Returns.Bound.Clamp(sum)
	return out
}

func (c *ReturnsCalculator) horizon(navs []contracts.NavObservation, latest contracts.NavObservation, h scorepolicy.Horizon) HorizonResult {
	target := targetDate(latest.Date, h)

	idx, ok := nearestWithin(navs, target, h.ToleranceDays)
	if !ok {
		return HorizonResult{}
	}
	hist := navs[idx]

	// Observations spanning the window, matched point through latest.
	if len(navs)-idx < h.MinObservations {
		return HorizonResult{}
	}

	span := daysBetween(hist.Date, latest.Date)
	if span <= 0 || hist.Value <= 0 {
		return HorizonResult{}
	}

	ratio := latest.Value / hist.Value
	pct := (ratio - 1) * 100
	if h.Annualized() {
		pct = (math.Pow(ratio, 365.0/float64(span)) - 1) * 100
	}
	if !isFinite(pct) {
		return HorizonResult{}
	}

	score := Round2(c.policy.Returns.Score(pct))
	return HorizonResult{ReturnPct: &pct, Score: &score}
}

// targetDate resolves a horizon to the date its lookup aims at.
// Days == 0 is year-to-date: January 1 of the latest NAV's year.
func targetDate(latest time.Time, h scorepolicy.Horizon) time.Time {
	if h.Days == 0 {
		return time.Date(latest.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return latest.AddDate(0, 0, -h.Days)
}

// nearestWithin finds the observation closest to target, no more than
// tolerance days away. Ties break toward the older observation.
func nearestWithin(navs []contracts.NavObservation, target time.Time, tolerance int) (int, bool) {
	if len(navs) == 0 {
		return 0, false
	}

	i := sort.Search(len(navs), func(j int) bool {
		return !navs[j].Date.Before(target)
	})

	best, bestGap := -1, tolerance+1
	if i > 0 {
		if gap := absDays(navs[i-1].Date, target); gap <= tolerance {
			best, bestGap = i-1, gap
		}
	}
	if i < len(navs) {
		if gap := absDays(navs[i].Date, target); gap < bestGap {
			best = i
		}
	}

	return best, best >= 0
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

func absDays(a, b time.Time) int {
	d := daysBetween(a, b)
	if d < 0 {
		return -d
	}
	return d
}
