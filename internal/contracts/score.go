package contracts

import "time"

// Recommendation is the advisory label derived from total score and
// peer quartile. Thresholds are fixed in the scoring policy, not fitted
// to the score distribution, so a fund's label cannot change because
// other funds moved.
type Recommendation string

const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

// ScoreRecord is one fund's complete scoring output for one date.
// Primary key (FundID, ScoreDate); writes are idempotent upserts.
//
// Nil pointer fields mean "not computable" and persist as SQL NULL.
// A horizon with too little history is absent, never zero: zero is a
// legitimate score for a flat return and must stay distinguishable.
type ScoreRecord struct {
	FundID    int64     `json:"fund_id"`
	ScoreDate time.Time `json:"score_date"`

	// Denormalized from the fund master so the rank phase can group
	// without joining back.
	Subcategory string `json:"subcategory"`

	// Per-horizon returns: raw percentage and its score.
	Return3MPct  *float64 `json:"return_3m_pct,omitempty"`
	Return6MPct  *float64 `json:"return_6m_pct,omitempty"`
	Return1YPct  *float64 `json:"return_1y_pct,omitempty"`
	Return3YPct  *float64 `json:"return_3y_pct,omitempty"`
	Return5YPct  *float64 `json:"return_5y_pct,omitempty"`
	ReturnYTDPct *float64 `json:"return_ytd_pct,omitempty"`

	Return3MScore  *float64 `json:"return_3m_score,omitempty"`
	Return6MScore  *float64 `json:"return_6m_score,omitempty"`
	Return1YScore  *float64 `json:"return_1y_score,omitempty"`
	Return3YScore  *float64 `json:"return_3y_score,omitempty"`
	Return5YScore  *float64 `json:"return_5y_score,omitempty"`
	ReturnYTDScore *float64 `json:"return_ytd_score,omitempty"`

	// Risk measures: raw statistic and its score. All nil together
	// when the daily-return series is too short.
	Volatility       *float64 `json:"volatility,omitempty"`   // annualized, percent
	MaxDrawdown      *float64 `json:"max_drawdown,omitempty"` // fraction, capped
	SharpeRatio      *float64 `json:"sharpe_ratio,omitempty"`
	CaptureRatio     *float64 `json:"capture_ratio,omitempty"`
	VolatilityScore  *float64 `json:"volatility_score,omitempty"`
	DrawdownScore    *float64 `json:"drawdown_score,omitempty"`
	SharpeScore      *float64 `json:"sharpe_score,omitempty"`
	DownsideVolScore *float64 `json:"downside_vol_score,omitempty"`

	// Other metrics.
	CaptureScore      *float64 `json:"capture_score,omitempty"`
	HistoryDepthScore *float64 `json:"history_depth_score,omitempty"`

	// Fundamentals always score: a missing attribute takes the policy's
	// neutral default and the matching flag records that it did.
	ExpenseScore     float64 `json:"expense_score"`
	AumScore         float64 `json:"aum_score"`
	AgeScore         float64 `json:"age_score"`
	ExpenseDefaulted bool    `json:"expense_defaulted"`
	AumDefaulted     bool    `json:"aum_defaulted"`
	AgeDefaulted     bool    `json:"age_defaulted"`

	// Component totals, each clamped to its policy bound. TotalScore is
	// the clamped sum of the four and nothing else.
	HistoricalReturnsTotal float64 `json:"historical_returns_total"` // [0,40]
	RiskGradeTotal         float64 `json:"risk_grade_total"`         // [0,30]
	FundamentalsTotal      float64 `json:"fundamentals_total"`       // [0,20]
	OtherMetricsTotal      float64 `json:"other_metrics_total"`      // [0,10]
	TotalScore             float64 `json:"total_score"`              // [0,100]

	// Peer ranking. Nil until the rank phase runs, and stays nil for
	// subcategories below the minimum peer count.
	SubcategoryRank       *int     `json:"subcategory_rank,omitempty"`
	SubcategoryTotal      *int     `json:"subcategory_total,omitempty"`
	SubcategoryPercentile *float64 `json:"subcategory_percentile,omitempty"` // [0,100]
	Quartile              *int     `json:"quartile,omitempty"`               // 1..4

	Recommendation Recommendation `json:"recommendation"`

	// Audit trail.
	RunID         string    `json:"run_id"`
	PolicyVersion string    `json:"policy_version"`
	PolicyHash    string    `json:"policy_hash"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasRanking reports whether the rank phase populated this record.
func (s *ScoreRecord) HasRanking() bool {
	return s.SubcategoryRank != nil && s.SubcategoryPercentile != nil && s.Quartile != nil
}

// ComponentSum returns the sum of the four component totals, before the
// overall clamp. Integrity checks compare TotalScore against this.
func (s *ScoreRecord) ComponentSum() float64 {
	return s.HistoricalReturnsTotal + s.RiskGradeTotal + s.FundamentalsTotal + s.OtherMetricsTotal
}
