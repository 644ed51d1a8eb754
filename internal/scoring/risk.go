package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorepolicy"
)

// RiskScores carries the risk-grade component and the other-metrics
// component (capture, history depth), which share the same inputs.
type RiskScores struct {
	Volatility       *float64
	VolatilityScore  *float64
	MaxDrawdown      *float64
	DrawdownScore    *float64
	SharpeRatio      *float64
	SharpeScore      *float64
	DownsideVol      *float64
	DownsideVolScore *float64

	CaptureRatio      *float64
	CaptureScore      *float64
	HistoryDepthScore *float64

	RiskTotal         float64
	OtherMetricsTotal float64
}

// RiskCalculator derives risk statistics from daily NAV returns.
type RiskCalculator struct {
	policy *scorepolicy.Policy
}

func NewRiskCalculator(p *scorepolicy.Policy) *RiskCalculator {
	return &RiskCalculator{policy: p}
}

// Calculate computes the risk grade for a NAV series sorted by date
// ascending. Returns beyond the outlier guard are treated as data
// faults and dropped before any statistic is taken.
func (c *RiskCalculator) Calculate(navs []contracts.NavObservation) RiskScores {
	r := c.policy.Risk
	out := RiskScores{}

	returns := c.dailyReturns(navs)

	// History depth counts raw observations, not clean returns: a fund
	// with patchy data still has the history it has.
	depth := r.HistoryDepthTiers.Score(float64(len(navs)))
	out.HistoryDepthScore = &depth

	if len(returns) >= r.MinReturnObservations {
		c.volatility(returns, &out)
		c.drawdown(navs, &out)
		c.sharpe(returns, &out)
		c.downside(returns, &out)
		c.capture(returns, &out)
	}

	riskSum := 0.0
	for _, s := range []*float64{out.VolatilityScore, out.DrawdownScore, out.SharpeScore, out.DownsideVolScore} {
		if s != nil {
			riskSum += *s
		}
	}
	out.RiskTotal = r.Bound.Clamp(riskSum)

	otherSum := depth
	if out.CaptureScore != nil {
		otherSum += *out.CaptureScore
	}
	out.OtherMetricsTotal = r.OtherMetricsBound.Clamp(otherSum)

	return out
}

// dailyReturns builds the clean return series: consecutive observation
// pairs only, with |r| >= OutlierGuard dropped.
func (c *RiskCalculator) dailyReturns(navs []contracts.NavObservation) []float64 {
	guard := c.policy.Risk.OutlierGuard
	returns := make([]float64, 0, len(navs))
	for i := 1; i < len(navs); i++ {
		prev := navs[i-1].Value
		if prev <= 0 {
			continue
		}
		r := navs[i].Value/prev - 1
		if math.Abs(r) >= guard || !isFinite(r) {
			continue
		}
		returns = append(returns, r)
	}
	return returns
}

func (c *RiskCalculator) volatility(returns []float64, out *RiskScores) {
	r := c.policy.Risk
	vol := stat.StdDev(returns, nil) * math.Sqrt(float64(r.TradingDays)) * 100
	if vol < r.VolatilityFloorPct {
		vol = r.VolatilityFloorPct
	}
	score := r.VolatilityTiers.Score(vol)
	out.Volatility = &vol
	out.VolatilityScore = &score
}

// drawdown measures the worst peak-to-trough loss over the whole
// series, capped at DrawdownCap.
func (c *RiskCalculator) drawdown(navs []contracts.NavObservation, out *RiskScores) {
	r := c.policy.Risk

	maxDD := 0.0
	peak := 0.0
	for _, nav := range navs {
		if nav.Value <= 0 {
			continue
		}
		if nav.Value > peak {
			peak = nav.Value
		}
		if peak > 0 {
			if dd := (peak - nav.Value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	if maxDD > r.DrawdownCap {
		maxDD = r.DrawdownCap
	}

	score := r.DrawdownTiers.Score(maxDD)
	out.MaxDrawdown = &maxDD
	out.DrawdownScore = &score
}

// sharpe annualizes (mean - rf) / stddev. A zero-variance series has
// no defined Sharpe and stays nil.
func (c *RiskCalculator) sharpe(returns []float64, out *RiskScores) {
	r := c.policy.Risk

	sd := stat.StdDev(returns, nil)
	if sd == 0 {
		return
	}

	dailyRf := r.RiskFreeRate / float64(r.TradingDays)
	sharpe := (stat.Mean(returns, nil) - dailyRf) / sd * math.Sqrt(float64(r.TradingDays))
	if sharpe > r.SharpeClamp {
		sharpe = r.SharpeClamp
	} else if sharpe < -r.SharpeClamp {
		sharpe = -r.SharpeClamp
	}

	score := r.SharpeTiers.Score(sharpe)
	out.SharpeRatio = &sharpe
	out.SharpeScore = &score
}

// downside is the annualized semideviation: losses count, gains are
// treated as zero deviation.
func (c *RiskCalculator) downside(returns []float64, out *RiskScores) {
	r := c.policy.Risk

	var sumSq float64
	for _, ret := range returns {
		if ret < 0 {
			sumSq += ret * ret
		}
	}
	downside := math.Sqrt(sumSq/float64(len(returns))) * math.Sqrt(float64(r.TradingDays)) * 100

	score := r.DownsideVolTiers.Score(downside)
	out.DownsideVol = &downside
	out.DownsideVolScore = &score
}

// capture is the gain-to-pain ratio: mean up day over mean down day
// magnitude. With no down days the ratio is undefined and stays nil.
func (c *RiskCalculator) capture(returns []float64, out *RiskScores) {
	r := c.policy.Risk

	var upSum, downSum float64
	var upN, downN int
	for _, ret := range returns {
		if ret > 0 {
			upSum += ret
			upN++
		} else if ret < 0 {
			downSum += ret
			downN++
		}
	}
	if downN == 0 {
		return
	}

	avgDown := -downSum / float64(downN)
	if avgDown == 0 {
		return
	}

	avgUp := 0.0
	if upN > 0 {
		avgUp = upSum / float64(upN)
	}

	ratio := avgUp / avgDown
	score := r.CaptureTiers.Score(ratio)
	out.CaptureRatio = &ratio
	out.CaptureScore = &score
}
