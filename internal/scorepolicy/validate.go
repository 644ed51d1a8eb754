package scorepolicy

import (
	"fmt"
)

// ValidationError is a hard policy violation. The run does not start.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags a legal but suspicious setting.
type Warning struct {
	Code    string
	Message string
}

// The score row has one column pair per horizon, so the set is closed.
var horizonNames = []string{"3m", "6m", "1y", "3y", "5y", "ytd"}

var knownHorizons = func() map[string]bool {
	m := make(map[string]bool, len(horizonNames))
	for _, n := range horizonNames {
		m[n] = true
	}
	return m
}()

// Validate checks every structural constraint of a policy.
func Validate(p *Policy) error {
	// === Meta ===
	if p.Meta.PolicyID == "" {
		return ValidationError{"meta.policy_id", "required"}
	}
	if p.Meta.Version == "" {
		return ValidationError{"meta.version", "required"}
	}

	// === Returns ===
	if p.Returns.MinObservations <= 0 {
		return ValidationError{"returns.min_observations", "must be > 0"}
	}
	if len(p.Returns.Horizons) == 0 {
		return ValidationError{"returns.horizons", "required"}
	}
	seen := map[string]bool{}
	for i, h := range p.Returns.Horizons {
		field := fmt.Sprintf("returns.horizons[%d]", i)
		if !knownHorizons[h.Name] {
			return ValidationError{field + ".name", fmt.Sprintf("unknown horizon %q, score rows only carry %v", h.Name, horizonNames)}
		}
		if seen[h.Name] {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate horizon %q", h.Name)}
		}
		seen[h.Name] = true
		if h.Days < 0 {
			return ValidationError{field + ".days", "must be >= 0 (0 = year-to-date)"}
		}
		if h.ToleranceDays <= 0 {
			return ValidationError{field + ".tolerance_days", "must be > 0"}
		}
		if h.MinObservations <= 0 {
			return ValidationError{field + ".min_observations", "must be > 0"}
		}
	}

	if err := validateFloorTiers("returns.tiers", p.Returns.Tiers); err != nil {
		return err
	}
	last := p.Returns.Tiers[len(p.Returns.Tiers)-1]
	if last.Min != 0 {
		return ValidationError{"returns.tiers", "last tier must start at 0 so every non-negative return scores"}
	}
	if p.Returns.NegativeSlope <= 0 {
		return ValidationError{"returns.negative_slope", "must be > 0"}
	}
	if p.Returns.NegativeFloor >= 0 {
		return ValidationError{"returns.negative_floor", "must be < 0"}
	}
	if err := validateBound("returns.bound", p.Returns.Bound); err != nil {
		return err
	}

	// === Risk ===
	r := p.Risk
	if r.MinReturnObservations < 2 {
		return ValidationError{"risk.min_return_observations", "must be >= 2 (standard deviation needs two points)"}
	}
	if r.OutlierGuard <= 0 || r.OutlierGuard > 1 {
		return ValidationError{"risk.outlier_guard", "must be in (0, 1]"}
	}
	if r.TradingDays <= 0 {
		return ValidationError{"risk.trading_days", "must be > 0"}
	}
	if r.VolatilityFloorPct <= 0 {
		return ValidationError{"risk.volatility_floor_pct", "must be > 0"}
	}
	if r.DrawdownCap <= 0 || r.DrawdownCap > 1 {
		return ValidationError{"risk.drawdown_cap", "must be in (0, 1]"}
	}
	if r.SharpeClamp <= 0 {
		return ValidationError{"risk.sharpe_clamp", "must be > 0"}
	}
	if r.RiskFreeRate < 0 || r.RiskFreeRate > 0.5 {
		return ValidationError{"risk.risk_free_rate", "must be in [0, 0.5]"}
	}

	if err := validateCeilingTable("risk.volatility_tiers", r.VolatilityTiers); err != nil {
		return err
	}
	if err := validateCeilingTable("risk.drawdown_tiers", r.DrawdownTiers); err != nil {
		return err
	}
	if err := validateFloorTable("risk.sharpe_tiers", r.SharpeTiers); err != nil {
		return err
	}
	if err := validateCeilingTable("risk.downside_vol_tiers", r.DownsideVolTiers); err != nil {
		return err
	}
	if err := validateFloorTable("risk.capture_tiers", r.CaptureTiers); err != nil {
		return err
	}
	if err := validateFloorTable("risk.history_depth_tiers", r.HistoryDepthTiers); err != nil {
		return err
	}
	if err := validateBound("risk.bound", r.Bound); err != nil {
		return err
	}
	if err := validateBound("risk.other_metrics_bound", r.OtherMetricsBound); err != nil {
		return err
	}

	// === Fundamentals ===
	f := p.Fundamentals
	if _, ok := f.ExpenseTables["default"]; !ok {
		return ValidationError{"fundamentals.expense_tables", "must contain a 'default' table"}
	}
	if _, ok := f.AumTables["default"]; !ok {
		return ValidationError{"fundamentals.aum_tables", "must contain a 'default' table"}
	}
	for cat, table := range f.ExpenseTables {
		if err := validateCeilingTable("fundamentals.expense_tables."+cat, table); err != nil {
			return err
		}
	}
	for cat, table := range f.AumTables {
		if err := validateBandTable("fundamentals.aum_tables."+cat, table); err != nil {
			return err
		}
	}
	if err := validateFloorTable("fundamentals.age_tiers", f.AgeTiers); err != nil {
		return err
	}
	if f.Defaults.ExpensePoints < 0 || f.Defaults.AumPoints < 0 || f.Defaults.AgePoints < 0 {
		return ValidationError{"fundamentals.defaults", "neutral defaults must be >= 0"}
	}
	if err := validateBound("fundamentals.bound", f.Bound); err != nil {
		return err
	}

	// === Composite ===
	if err := validateBound("composite.bound", p.Composite.Bound); err != nil {
		return err
	}
	componentMax := p.Returns.Bound.Max + r.Bound.Max + f.Bound.Max + r.OtherMetricsBound.Max
	if p.Composite.Bound.Max != componentMax {
		return ValidationError{"composite.bound.max",
			fmt.Sprintf("must equal the component bound sum %.0f, got %.0f", componentMax, p.Composite.Bound.Max)}
	}

	// === Ranking ===
	if p.Ranking.MinPeerGroup < 2 {
		return ValidationError{"ranking.min_peer_group", "must be >= 2 (percentile needs at least two members)"}
	}
	q := p.Ranking
	if !(0 < q.QuartileQ3 && q.QuartileQ3 < q.QuartileQ2 && q.QuartileQ2 < q.QuartileQ1 && q.QuartileQ1 < 100) {
		return ValidationError{"ranking", "quartile thresholds must satisfy 0 < q3 < q2 < q1 < 100"}
	}

	// === Recommendation ===
	rec := p.Recommendation
	for _, rule := range []struct {
		name string
		r    RecRule
	}{
		{"strong_buy", rec.StrongBuy},
		{"buy", rec.Buy},
		{"hold", rec.Hold},
		{"sell", rec.Sell},
	} {
		if rule.r.MinTotal < 0 {
			return ValidationError{"recommendation." + rule.name + ".min_total", "must be >= 0"}
		}
		if rule.r.MaxQuartile < 0 || rule.r.MaxQuartile > 4 {
			return ValidationError{"recommendation." + rule.name + ".max_quartile", "must be in [0, 4] (0 = no gate)"}
		}
	}
	if !(rec.StrongBuy.MinTotal >= rec.Buy.MinTotal && rec.Buy.MinTotal >= rec.Hold.MinTotal && rec.Hold.MinTotal >= rec.Sell.MinTotal) {
		return ValidationError{"recommendation", "min_total thresholds must not increase from strong_buy down to sell"}
	}
	u := rec.Unranked
	if !(u.BuyMinTotal >= u.HoldMinTotal && u.HoldMinTotal >= u.SellMinTotal && u.SellMinTotal >= 0) {
		return ValidationError{"recommendation.unranked", "thresholds must satisfy buy >= hold >= sell >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal).
func Warn(p *Policy) []Warning {
	var warnings []Warning

	if p.Ranking.MinPeerGroup < 5 {
		warnings = append(warnings, Warning{
			Code:    "SMALL_PEER_GROUPS",
			Message: fmt.Sprintf("min_peer_group=%d: quartiles over tiny groups are noisy", p.Ranking.MinPeerGroup),
		})
	}

	if p.Risk.RiskFreeRate > 0.10 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_RISK_FREE",
			Message: fmt.Sprintf("risk_free_rate=%.2f: above any recent T-bill yield, Sharpe scores will skew low", p.Risk.RiskFreeRate),
		})
	}

	for _, h := range p.Returns.Horizons {
		if h.ToleranceDays > 45 {
			warnings = append(warnings, Warning{
				Code:    "WIDE_TOLERANCE",
				Message: fmt.Sprintf("horizon %s tolerance=%dd: lookup may land in a different market regime", h.Name, h.ToleranceDays),
			})
		}
	}

	if p.Returns.MinObservations < 60 {
		warnings = append(warnings, Warning{
			Code:    "LOW_ELIGIBILITY",
			Message: fmt.Sprintf("returns.min_observations=%d: very young funds will be scored on thin history", p.Returns.MinObservations),
		})
	}

	return warnings
}

// === Helper Functions ===

func validateBound(field string, b Bound) error {
	if b.Min >= b.Max {
		return ValidationError{field, fmt.Sprintf("min %.2f must be < max %.2f", b.Min, b.Max)}
	}
	return nil
}

func validateFloorTiers(field string, tiers []FloorTier) error {
	if len(tiers) == 0 {
		return ValidationError{field, "must not be empty"}
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Min >= tiers[i-1].Min {
			return ValidationError{field, fmt.Sprintf("tier[%d].min must be below tier[%d].min", i, i-1)}
		}
		if tiers[i].Points >= tiers[i-1].Points {
			return ValidationError{field, fmt.Sprintf("tier[%d].points must be below tier[%d].points", i, i-1)}
		}
	}
	return nil
}

func validateFloorTable(field string, t FloorTable) error {
	if err := validateFloorTiers(field+".tiers", t.Tiers); err != nil {
		return err
	}
	worst := t.Tiers[len(t.Tiers)-1]
	if t.FloorPoints >= worst.Points {
		return ValidationError{field + ".floor_points", "must be below the worst tier's points"}
	}
	return nil
}

func validateCeilingTable(field string, t CeilingTable) error {
	if len(t.Tiers) == 0 {
		return ValidationError{field + ".tiers", "must not be empty"}
	}
	for i := 1; i < len(t.Tiers); i++ {
		if t.Tiers[i].Max <= t.Tiers[i-1].Max {
			return ValidationError{field + ".tiers", fmt.Sprintf("tier[%d].max must be above tier[%d].max", i, i-1)}
		}
		if t.Tiers[i].Points >= t.Tiers[i-1].Points {
			return ValidationError{field + ".tiers", fmt.Sprintf("tier[%d].points must be below tier[%d].points", i, i-1)}
		}
	}
	worst := t.Tiers[len(t.Tiers)-1]
	if t.FloorPoints >= worst.Points {
		return ValidationError{field + ".floor_points", "must be below the worst tier's points"}
	}
	return nil
}

func validateBandTable(field string, t BandTable) error {
	if len(t.Bands) == 0 {
		return ValidationError{field + ".bands", "must not be empty"}
	}
	for i, band := range t.Bands {
		if band.Min < 0 {
			return ValidationError{fmt.Sprintf("%s.bands[%d].min", field, i), "must be >= 0"}
		}
		if band.Max != 0 && band.Max <= band.Min {
			return ValidationError{fmt.Sprintf("%s.bands[%d]", field, i), "max must be above min (or 0 for unbounded)"}
		}
		if band.Points < 0 {
			return ValidationError{fmt.Sprintf("%s.bands[%d].points", field, i), "must be >= 0"}
		}
		// Bands must not overlap: the first match wins and a shadowed
		// band is almost certainly a typo.
		for j := 0; j < i; j++ {
			if bandsOverlap(band, t.Bands[j]) {
				return ValidationError{fmt.Sprintf("%s.bands[%d]", field, i), fmt.Sprintf("overlaps bands[%d]", j)}
			}
		}
	}
	return nil
}

func bandsOverlap(a, b Band) bool {
	aMax, bMax := a.Max, b.Max
	if aMax == 0 {
		aMax = float64(int64(1) << 62)
	}
	if bMax == 0 {
		bMax = float64(int64(1) << 62)
	}
	return a.Min < bMax && b.Min < aMax
}
