package scorestore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/ranking"
	"github.com/adivish/fundlens/internal/scorepolicy"
	"github.com/adivish/fundlens/pkg/logger"
)

// scoreEpsilon absorbs the 2-decimal quantization of persisted scores.
const scoreEpsilon = 0.005

// Violation is one integrity failure on a persisted score row.
type Violation struct {
	FundID int64  `json:"fund_id"`
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("fund %d %s: %s", v.FundID, v.Field, v.Detail)
}

// Verifier rechecks persisted score rows against the scoring policy's
// invariants: component arithmetic, bounds, ranking consistency and
// label derivation. It reads what the rank phase wrote and recomputes
// what must hold, without rescoring anything.
type Verifier struct {
	scores contracts.ScoreRepository
	policy *scorepolicy.Policy
	logger *logger.Logger
}

func NewVerifier(scores contracts.ScoreRepository, p *scorepolicy.Policy, log *logger.Logger) *Verifier {
	return &Verifier{scores: scores, policy: p, logger: log}
}

// Verify checks every score row for the date. It returns the list of
// violations; the error is reserved for storage failures.
func (v *Verifier) Verify(ctx context.Context, date time.Time) ([]Violation, error) {
	recs, err := v.scores.GetByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores for verification: %w", err)
	}

	var violations []Violation
	for _, rec := range recs {
		violations = append(violations, v.checkRecord(rec)...)
	}

	for subcategory, group := range ranking.GroupBySubcategory(recs) {
		violations = append(violations, v.checkGroup(subcategory, group)...)
	}

	v.logger.WithFields(map[string]interface{}{
		"date":       date.Format("2006-01-02"),
		"rows":       len(recs),
		"violations": len(violations),
	}).Info("Integrity verification completed")

	return violations, nil
}

func (v *Verifier) checkRecord(rec *contracts.ScoreRecord) []Violation {
	var out []Violation
	add := func(field, format string, args ...interface{}) {
		out = append(out, Violation{FundID: rec.FundID, Field: field, Detail: fmt.Sprintf(format, args...)})
	}

	for _, c := range []struct {
		field string
		value float64
		bound scorepolicy.Bound
	}{
		{"historical_returns_total", rec.HistoricalReturnsTotal, v.policy.Returns.Bound},
		{"risk_grade_total", rec.RiskGradeTotal, v.policy.Risk.Bound},
		{"fundamentals_total", rec.FundamentalsTotal, v.policy.Fundamentals.Bound},
		{"other_metrics_total", rec.OtherMetricsTotal, v.policy.Risk.OtherMetricsBound},
		{"total_score", rec.TotalScore, v.policy.Composite.Bound},
	} {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			add(c.field, "non-finite value")
			continue
		}
		if c.value < c.bound.Min-scoreEpsilon || c.value > c.bound.Max+scoreEpsilon {
			add(c.field, "%.2f outside [%.0f, %.0f]", c.value, c.bound.Min, c.bound.Max)
		}
	}

	// The total is the clamped component sum and nothing else.
	want := v.policy.Composite.Bound.Clamp(rec.ComponentSum())
	if math.Abs(rec.TotalScore-want) > scoreEpsilon {
		add("total_score", "%.2f does not match clamped component sum %.2f", rec.TotalScore, want)
	}

	// Rank fields travel together.
	set := 0
	for _, present := range []bool{
		rec.SubcategoryRank != nil,
		rec.SubcategoryTotal != nil,
		rec.SubcategoryPercentile != nil,
		rec.Quartile != nil,
	} {
		if present {
			set++
		}
	}
	if set != 0 && set != 4 {
		add("ranking", "partial ranking fields (%d of 4 set)", set)
		return out
	}

	if rec.HasRanking() {
		pct := *rec.SubcategoryPercentile
		if pct < 0 || pct > 100 {
			add("subcategory_percentile", "%.2f outside [0, 100]", pct)
		}
		if *rec.SubcategoryRank < 1 || *rec.SubcategoryRank > *rec.SubcategoryTotal {
			add("subcategory_rank", "rank %d outside 1..%d", *rec.SubcategoryRank, *rec.SubcategoryTotal)
		}
		if want := v.policy.Ranking.Quartile(pct); *rec.Quartile != want {
			add("quartile", "%d does not match percentile %.2f (want %d)", *rec.Quartile, pct, want)
		}
		if want := v.policy.Recommendation.Label(rec.TotalScore, rec.Quartile); rec.Recommendation != want {
			add("recommendation", "%s does not match total %.2f quartile %d (want %s)", rec.Recommendation, rec.TotalScore, *rec.Quartile, want)
		}
	} else {
		if want := v.policy.Recommendation.Label(rec.TotalScore, nil); rec.Recommendation != want {
			add("recommendation", "%s does not match unranked total %.2f (want %s)", rec.Recommendation, rec.TotalScore, want)
		}
	}

	if len(rec.PolicyHash) != 64 {
		add("policy_hash", "missing or malformed hash")
	}

	return out
}

func (v *Verifier) checkGroup(subcategory string, group []*contracts.ScoreRecord) []Violation {
	var out []Violation
	n := len(group)

	if n < v.policy.Ranking.MinPeerGroup {
		for _, rec := range group {
			if rec.HasRanking() {
				out = append(out, Violation{
					FundID: rec.FundID,
					Field:  "ranking",
					Detail: fmt.Sprintf("ranked inside %q with only %d members", subcategory, n),
				})
			}
		}
		return out
	}

	sorted := make([]*contracts.ScoreRecord, n)
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		return sorted[i].FundID < sorted[j].FundID
	})

	for i, rec := range sorted {
		if !rec.HasRanking() {
			out = append(out, Violation{
				FundID: rec.FundID,
				Field:  "ranking",
				Detail: fmt.Sprintf("unranked inside rankable group %q (%d members)", subcategory, n),
			})
			continue
		}
		if *rec.SubcategoryTotal != n {
			out = append(out, Violation{
				FundID: rec.FundID,
				Field:  "subcategory_total",
				Detail: fmt.Sprintf("%d does not match group size %d", *rec.SubcategoryTotal, n),
			})
		}
		if *rec.SubcategoryRank != i+1 {
			out = append(out, Violation{
				FundID: rec.FundID,
				Field:  "subcategory_rank",
				Detail: fmt.Sprintf("rank %d does not match score order position %d", *rec.SubcategoryRank, i+1),
			})
		}
		if want := ranking.Percentile(*rec.SubcategoryRank, n); math.Abs(*rec.SubcategoryPercentile-want) > scoreEpsilon {
			out = append(out, Violation{
				FundID: rec.FundID,
				Field:  "subcategory_percentile",
				Detail: fmt.Sprintf("%.2f does not match rank %d of %d (want %.2f)", *rec.SubcategoryPercentile, *rec.SubcategoryRank, n, want),
			})
		}
	}

	return out
}
