package scorepolicy

import (
	"github.com/adivish/fundlens/internal/contracts"
)

// Policy is the complete scoring rulebook: every threshold, tier table
// and bound the calculators use lives here. It is loaded and validated
// once per run; its hash is stamped onto every score row it produced.
type Policy struct {
	Meta           Meta                `yaml:"meta" json:"meta"`
	Returns        Returns             `yaml:"returns" json:"returns"`
	Risk           Risk                `yaml:"risk" json:"risk"`
	Fundamentals   Fundamentals        `yaml:"fundamentals" json:"fundamentals"`
	Composite      Composite           `yaml:"composite" json:"composite"`
	Ranking        Ranking             `yaml:"ranking" json:"ranking"`
	Recommendation RecommendationRules `yaml:"recommendation" json:"recommendation"`
}

// Meta identifies the policy for audit.
type Meta struct {
	PolicyID string `yaml:"policy_id" json:"policy_id"`
	Version  string `yaml:"version" json:"version"`
}

// Bound is an inclusive clamp range.
type Bound struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Clamp forces v into the bound.
func (b Bound) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// FloorTier awards Points when the statistic is at or above Min.
type FloorTier struct {
	Min    float64 `yaml:"min" json:"min"`
	Points float64 `yaml:"points" json:"points"`
}

// CeilingTier awards Points when the statistic is at or below Max.
type CeilingTier struct {
	Max    float64 `yaml:"max" json:"max"`
	Points float64 `yaml:"points" json:"points"`
}

// FloorTable scores a higher-is-better statistic. Tiers are ordered
// best first; a value below every tier earns FloorPoints.
type FloorTable struct {
	Tiers       []FloorTier `yaml:"tiers" json:"tiers"`
	FloorPoints float64     `yaml:"floor_points" json:"floor_points"`
}

// Score returns the points for v.
func (t FloorTable) Score(v float64) float64 {
	for _, tier := range t.Tiers {
		if v >= tier.Min {
			return tier.Points
		}
	}
	return t.FloorPoints
}

// MaxPoints returns the best score the table can award.
func (t FloorTable) MaxPoints() float64 {
	max := t.FloorPoints
	for _, tier := range t.Tiers {
		if tier.Points > max {
			max = tier.Points
		}
	}
	return max
}

// CeilingTable scores a lower-is-better statistic. Tiers are ordered
// best first; a value above every tier earns FloorPoints.
type CeilingTable struct {
	Tiers       []CeilingTier `yaml:"tiers" json:"tiers"`
	FloorPoints float64       `yaml:"floor_points" json:"floor_points"`
}

// Score returns the points for v.
func (t CeilingTable) Score(v float64) float64 {
	for _, tier := range t.Tiers {
		if v <= tier.Max {
			return tier.Points
		}
	}
	return t.FloorPoints
}

// MaxPoints returns the best score the table can award.
func (t CeilingTable) MaxPoints() float64 {
	max := t.FloorPoints
	for _, tier := range t.Tiers {
		if tier.Points > max {
			max = tier.Points
		}
	}
	return max
}

// Band awards Points when Min <= v < Max. Max == 0 means unbounded.
type Band struct {
	Min    float64 `yaml:"min" json:"min"`
	Max    float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Points float64 `yaml:"points" json:"points"`
}

// BandTable scores a sweet-spot statistic such as AUM, where both tiny
// and huge values are penalized.
type BandTable struct {
	Bands       []Band  `yaml:"bands" json:"bands"`
	FloorPoints float64 `yaml:"floor_points" json:"floor_points"`
}

// Score returns the points for v.
func (t BandTable) Score(v float64) float64 {
	for _, band := range t.Bands {
		if v >= band.Min && (band.Max == 0 || v < band.Max) {
			return band.Points
		}
	}
	return t.FloorPoints
}

// MaxPoints returns the best score the table can award.
func (t BandTable) MaxPoints() float64 {
	max := t.FloorPoints
	for _, band := range t.Bands {
		if band.Points > max {
			max = band.Points
		}
	}
	return max
}

// Horizon defines one return-lookback window.
type Horizon struct {
	Name string `yaml:"name" json:"name"` // 3m, 6m, 1y, 3y, 5y, ytd
	// Days back from the latest NAV. 0 means year-to-date: the window
	// starts at January 1 of the latest NAV's year.
	Days            int `yaml:"days" json:"days"`
	ToleranceDays   int `yaml:"tolerance_days" json:"tolerance_days"`
	MinObservations int `yaml:"min_observations" json:"min_observations"`
}

// Annualized reports whether this horizon's return is annualized
// before scoring (windows longer than a year).
func (h Horizon) Annualized() bool {
	return h.Days > 365
}

// Returns holds the return-component rules.
type Returns struct {
	// Funds with fewer scorable observations than this are excluded
	// from the run entirely.
	MinObservations int `yaml:"min_observations" json:"min_observations"`

	Horizons []Horizon `yaml:"horizons" json:"horizons"`

	// Tier thresholds on the annualized-return percent.
	Tiers []FloorTier `yaml:"tiers" json:"tiers"`

	// Sub-zero returns score NegativeSlope points per percent below
	// zero, never lower than NegativeFloor. The result is negative by
	// construction so a losing horizon is distinguishable from a flat
	// one.
	NegativeSlope float64 `yaml:"negative_slope" json:"negative_slope"`
	NegativeFloor float64 `yaml:"negative_floor" json:"negative_floor"`

	Bound Bound `yaml:"bound" json:"bound"`
}

// Score maps an annualized-return percent to horizon points.
func (r Returns) Score(annualizedPct float64) float64 {
	if annualizedPct < 0 {
		s := annualizedPct * r.NegativeSlope
		if s < r.NegativeFloor {
			s = r.NegativeFloor
		}
		return s
	}
	for _, tier := range r.Tiers {
		if annualizedPct >= tier.Min {
			return tier.Points
		}
	}
	// Tiers end at 0; non-negative input always matches. Kept for
	// malformed custom policies.
	return 0
}

// HorizonByName returns the horizon definition, or nil.
func (r Returns) HorizonByName(name string) *Horizon {
	for i := range r.Horizons {
		if r.Horizons[i].Name == name {
			return &r.Horizons[i]
		}
	}
	return nil
}

// Risk holds the risk-component rules.
type Risk struct {
	MinReturnObservations int     `yaml:"min_return_observations" json:"min_return_observations"`
	OutlierGuard          float64 `yaml:"outlier_guard" json:"outlier_guard"`
	TradingDays           int     `yaml:"trading_days" json:"trading_days"`
	VolatilityFloorPct    float64 `yaml:"volatility_floor_pct" json:"volatility_floor_pct"`
	DrawdownCap           float64 `yaml:"drawdown_cap" json:"drawdown_cap"`
	SharpeClamp           float64 `yaml:"sharpe_clamp" json:"sharpe_clamp"`
	RiskFreeRate          float64 `yaml:"risk_free_rate" json:"risk_free_rate"`

	VolatilityTiers  CeilingTable `yaml:"volatility_tiers" json:"volatility_tiers"`
	DrawdownTiers    CeilingTable `yaml:"drawdown_tiers" json:"drawdown_tiers"`
	SharpeTiers      FloorTable   `yaml:"sharpe_tiers" json:"sharpe_tiers"`
	DownsideVolTiers CeilingTable `yaml:"downside_vol_tiers" json:"downside_vol_tiers"`

	// CaptureTiers and HistoryDepthTiers feed the other-metrics
	// component, not the risk grade.
	CaptureTiers      FloorTable `yaml:"capture_tiers" json:"capture_tiers"`
	HistoryDepthTiers FloorTable `yaml:"history_depth_tiers" json:"history_depth_tiers"`

	Bound             Bound `yaml:"bound" json:"bound"`
	OtherMetricsBound Bound `yaml:"other_metrics_bound" json:"other_metrics_bound"`
}

// Fundamentals holds the fundamentals-component rules. Tables are keyed
// by fund category; lookup falls back to the "default" key.
type Fundamentals struct {
	ExpenseTables map[string]CeilingTable `yaml:"expense_tables" json:"expense_tables"`
	AumTables     map[string]BandTable    `yaml:"aum_tables" json:"aum_tables"`
	AgeTiers      FloorTable              `yaml:"age_tiers" json:"age_tiers"`

	Defaults FundamentalsDefaults `yaml:"defaults" json:"defaults"`

	Bound Bound `yaml:"bound" json:"bound"`
}

// FundamentalsDefaults are the neutral scores used when a fund
// attribute is missing. Defaulted items are flagged on the score row.
type FundamentalsDefaults struct {
	ExpensePoints float64 `yaml:"expense_points" json:"expense_points"`
	AumPoints     float64 `yaml:"aum_points" json:"aum_points"`
	AgePoints     float64 `yaml:"age_points" json:"age_points"`
}

// ExpenseTable returns the category's expense table, falling back to
// the default table.
func (f Fundamentals) ExpenseTable(category string) CeilingTable {
	if t, ok := f.ExpenseTables[category]; ok {
		return t
	}
	return f.ExpenseTables["default"]
}

// AumTable returns the category's AUM table, falling back to the
// default table.
func (f Fundamentals) AumTable(category string) BandTable {
	if t, ok := f.AumTables[category]; ok {
		return t
	}
	return f.AumTables["default"]
}

// Composite holds the overall bound.
type Composite struct {
	Bound Bound `yaml:"bound" json:"bound"`
}

// Ranking holds the peer-ranking rules.
type Ranking struct {
	// Subcategory groups below this member count are not ranked.
	MinPeerGroup int `yaml:"min_peer_group" json:"min_peer_group"`

	// Percentile cutoffs for quartiles 1, 2 and 3; anything below the
	// last cutoff is quartile 4.
	QuartileQ1 float64 `yaml:"quartile_q1" json:"quartile_q1"`
	QuartileQ2 float64 `yaml:"quartile_q2" json:"quartile_q2"`
	QuartileQ3 float64 `yaml:"quartile_q3" json:"quartile_q3"`
}

// Quartile maps a percentile to its quartile.
func (r Ranking) Quartile(percentile float64) int {
	switch {
	case percentile >= r.QuartileQ1:
		return 1
	case percentile >= r.QuartileQ2:
		return 2
	case percentile >= r.QuartileQ3:
		return 3
	default:
		return 4
	}
}

// RecRule gates one recommendation label: the fund needs at least
// MinTotal points and, when MaxQuartile > 0, a quartile no worse than
// MaxQuartile.
type RecRule struct {
	MinTotal    float64 `yaml:"min_total" json:"min_total"`
	MaxQuartile int     `yaml:"max_quartile,omitempty" json:"max_quartile,omitempty"`
}

// UnrankedRules derive a label from total score alone, for funds whose
// subcategory was too small to rank. STRONG_BUY is deliberately absent:
// without peer confirmation the best available label is BUY.
type UnrankedRules struct {
	BuyMinTotal  float64 `yaml:"buy_min_total" json:"buy_min_total"`
	HoldMinTotal float64 `yaml:"hold_min_total" json:"hold_min_total"`
	SellMinTotal float64 `yaml:"sell_min_total" json:"sell_min_total"`
}

// RecommendationRules hold the fixed advisory thresholds. Fixed means
// fixed: labels never depend on how the rest of the universe scored,
// so a fund's label cannot drift without its own inputs changing.
type RecommendationRules struct {
	StrongBuy RecRule       `yaml:"strong_buy" json:"strong_buy"`
	Buy       RecRule       `yaml:"buy" json:"buy"`
	Hold      RecRule       `yaml:"hold" json:"hold"`
	Sell      RecRule       `yaml:"sell" json:"sell"`
	Unranked  UnrankedRules `yaml:"unranked" json:"unranked"`
}

func (rr RecRule) allows(total float64, quartile int) bool {
	if total < rr.MinTotal {
		return false
	}
	return rr.MaxQuartile == 0 || quartile <= rr.MaxQuartile
}

// Label derives the advisory label. quartile is nil for unranked funds.
func (r RecommendationRules) Label(total float64, quartile *int) contracts.Recommendation {
	if quartile == nil {
		switch {
		case total >= r.Unranked.BuyMinTotal:
			return contracts.Buy
		case total >= r.Unranked.HoldMinTotal:
			return contracts.Hold
		case total >= r.Unranked.SellMinTotal:
			return contracts.Sell
		default:
			return contracts.StrongSell
		}
	}

	q := *quartile
	switch {
	case r.StrongBuy.allows(total, q):
		return contracts.StrongBuy
	case r.Buy.allows(total, q):
		return contracts.Buy
	case r.Hold.allows(total, q):
		return contracts.Hold
	case r.Sell.allows(total, q):
		return contracts.Sell
	default:
		return contracts.StrongSell
	}
}
