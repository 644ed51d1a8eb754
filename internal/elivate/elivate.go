// Package elivate computes the market-level ELIVATE composite: six
// macro pillars scored from stored indicator readings, summed to a
// 0-100 total and mapped to a market stance. It sits beside fund
// scoring, not inside it: fund scores never depend on the stance.
package elivate

import (
	"time"

	"github.com/adivish/fundlens/internal/scoring"
)

// Stance is the advisory market posture derived from the total.
type Stance string

const (
	StanceBullish Stance = "BULLISH"
	StanceNeutral Stance = "NEUTRAL"
	StanceBearish Stance = "BEARISH"
)

const (
	bullishMin = 75.0
	neutralMin = 50.0
)

// StanceFor maps a total score to its stance.
func StanceFor(total float64) Stance {
	switch {
	case total >= bullishMin:
		return StanceBullish
	case total >= neutralMin:
		return StanceNeutral
	default:
		return StanceBearish
	}
}

// Score is one day's ELIVATE result. Pillar scores run from zero to
// the pillar's weight; the weights sum to 100.
type Score struct {
	ScoreDate time.Time `json:"score_date"`

	ExternalInfluence float64 `json:"external_influence_score"`
	LocalStory        float64 `json:"local_story_score"`
	InflationRates    float64 `json:"inflation_rates_score"`
	ValuationEarnings float64 `json:"valuation_earnings_score"`
	AllocationCapital float64 `json:"allocation_capital_score"`
	TrendsSentiments  float64 `json:"trends_sentiments_score"`

	Total  float64 `json:"total_elivate_score"`
	Stance Stance  `json:"market_stance"`
}

// IndicatorRule normalizes one macro reading to [0,1] with a clamped
// linear ramp between Min and Max. Inverse flips the ramp for
// indicators where lower readings are the favorable ones.
type IndicatorRule struct {
	Name    string
	Min     float64
	Max     float64
	Inverse bool
}

func (r IndicatorRule) normalize(v float64) float64 {
	if r.Max == r.Min {
		return 0.5
	}
	t := (v - r.Min) / (r.Max - r.Min)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	if r.Inverse {
		t = 1 - t
	}
	return t
}

// Pillar is one of the six ELIVATE components.
type Pillar struct {
	Name       string
	Weight     float64
	Indicators []IndicatorRule
}

// score averages the pillar's available indicators and scales by the
// weight. A pillar with no readings at all takes half its weight, the
// same neutral-default treatment fundamentals give missing attributes.
func (p Pillar) score(readings map[string]float64) float64 {
	sum, n := 0.0, 0
	for _, ind := range p.Indicators {
		v, ok := readings[ind.Name]
		if !ok {
			continue
		}
		sum += ind.normalize(v)
		n++
	}
	if n == 0 {
		return scoring.Round2(p.Weight / 2)
	}
	return scoring.Round2(p.Weight * sum / float64(n))
}

// Pillar names, fixed by the persisted schema.
const (
	PillarExternalInfluence = "external_influence"
	PillarLocalStory        = "local_story"
	PillarInflationRates    = "inflation_rates"
	PillarValuationEarnings = "valuation_earnings"
	PillarAllocationCapital = "allocation_capital"
	PillarTrendsSentiments  = "trends_sentiments"
)

// DefaultPillars returns the built-in pillar definitions. Ramp bounds
// are tuned for Indian market readings: FII flows in crores, Nifty
// multiples, RBI policy rates.
func DefaultPillars() []Pillar {
	return []Pillar{
		{
			Name:   PillarExternalInfluence,
			Weight: 20,
			Indicators: []IndicatorRule{
				{Name: "us_fed_funds_rate", Min: 0, Max: 6, Inverse: true},
				{Name: "dxy_index", Min: 90, Max: 115, Inverse: true},
				{Name: "brent_crude_usd", Min: 40, Max: 120, Inverse: true},
			},
		},
		{
			Name:   PillarLocalStory,
			Weight: 20,
			Indicators: []IndicatorRule{
				{Name: "gdp_growth_pct", Min: 3, Max: 9},
				{Name: "iip_growth_pct", Min: -2, Max: 8},
				{Name: "pmi_composite", Min: 45, Max: 60},
			},
		},
		{
			Name:   PillarInflationRates,
			Weight: 20,
			Indicators: []IndicatorRule{
				{Name: "cpi_inflation_pct", Min: 2, Max: 8, Inverse: true},
				{Name: "repo_rate_pct", Min: 4, Max: 8, Inverse: true},
				{Name: "gsec_10y_yield_pct", Min: 5.5, Max: 8.5, Inverse: true},
			},
		},
		{
			Name:   PillarValuationEarnings,
			Weight: 20,
			Indicators: []IndicatorRule{
				{Name: "nifty_pe", Min: 14, Max: 28, Inverse: true},
				{Name: "nifty_pb", Min: 2, Max: 5, Inverse: true},
				{Name: "earnings_growth_pct", Min: 0, Max: 25},
			},
		},
		{
			Name:   PillarAllocationCapital,
			Weight: 10,
			Indicators: []IndicatorRule{
				{Name: "fii_net_flows_crores", Min: -50000, Max: 50000},
				{Name: "dii_net_flows_crores", Min: -25000, Max: 50000},
				{Name: "sip_inflows_crores", Min: 8000, Max: 30000},
			},
		},
		{
			Name:   PillarTrendsSentiments,
			Weight: 10,
			Indicators: []IndicatorRule{
				{Name: "nifty_above_200dma_pct", Min: 20, Max: 80},
				{Name: "india_vix", Min: 10, Max: 30, Inverse: true},
				{Name: "advance_decline_ratio", Min: 0.5, Max: 2},
			},
		},
	}
}

// Calculator turns a set of indicator readings into an ELIVATE score.
type Calculator struct {
	pillars []Pillar
}

func NewCalculator() *Calculator {
	return &Calculator{pillars: DefaultPillars()}
}

// Compute scores the readings for a date. Missing indicators reduce a
// pillar to its available components; a fully missing pillar scores
// neutral, so an empty readings map lands exactly on 50.
func (c *Calculator) Compute(scoreDate time.Time, readings map[string]float64) *Score {
	score := &Score{ScoreDate: scoreDate}

	total := 0.0
	for _, p := range c.pillars {
		pts := p.score(readings)
		total += pts

		switch p.Name {
		case PillarExternalInfluence:
			score.ExternalInfluence = pts
		case PillarLocalStory:
			score.LocalStory = pts
		case PillarInflationRates:
			score.InflationRates = pts
		case PillarValuationEarnings:
			score.ValuationEarnings = pts
		case PillarAllocationCapital:
			score.AllocationCapital = pts
		case PillarTrendsSentiments:
			score.TrendsSentiments = pts
		}
	}

	score.Total = scoring.Round2(total)
	score.Stance = StanceFor(score.Total)
	return score
}
