package scoring

import (
	"fmt"
	"time"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorepolicy"
	"github.com/adivish/fundlens/pkg/logger"
)

// Scorer runs all component calculators for one fund and assembles the
// ScoreRecord. It is safe for concurrent use: the policy is read-only
// after construction.
type Scorer struct {
	policy     *scorepolicy.Policy
	policyHash string

	returns      *ReturnsCalculator
	risk         *RiskCalculator
	fundamentals *FundamentalsCalculator

	logger *logger.Logger
}

// NewScorer builds a scorer for a validated policy. The policy hash is
// computed once and stamped onto every record the scorer produces.
func NewScorer(p *scorepolicy.Policy, log *logger.Logger) (*Scorer, error) {
	hash, err := scorepolicy.Hash(p)
	if err != nil {
		return nil, fmt.Errorf("hash policy: %w", err)
	}

	return &Scorer{
		policy:       p,
		policyHash:   hash,
		returns:      NewReturnsCalculator(p),
		risk:         NewRiskCalculator(p),
		fundamentals: NewFundamentalsCalculator(p),
		logger:       log,
	}, nil
}

// PolicyHash returns the hash stamped onto produced records.
func (s *Scorer) PolicyHash() string { return s.policyHash }

// Policy returns the scorer's policy.
func (s *Scorer) Policy() *scorepolicy.Policy { return s.policy }

// Score computes the full score record for one fund. navs must be
// sorted by date ascending. Ranking fields are left nil; the rank
// phase fills them in, and until it does the recommendation is the
// total-only label.
//
// A fund below the eligibility floor returns ErrInsufficientHistory
// and no record.
func (s *Scorer) Score(fund *contracts.Fund, navs []contracts.NavObservation, scoreDate time.Time) (*contracts.ScoreRecord, error) {
	clean := scorableNavs(navs)

	if len(clean) < s.policy.Returns.MinObservations {
		return nil, fmt.Errorf("fund %d has %d scorable observations, need %d: %w",
			fund.ID, len(clean), s.policy.Returns.MinObservations, contracts.ErrInsufficientHistory)
	}

	rets := s.returns.Calculate(clean)
	risk := s.risk.Calculate(clean)
	fnd := s.fundamentals.Calculate(fund, scoreDate)

	returnsTotal := Round2(rets.Total)
	riskTotal := Round2(risk.RiskTotal)
	fundTotal := Round2(fnd.Total)
	otherTotal := Round2(risk.OtherMetricsTotal)
	total := Round2(s.policy.Composite.Bound.Clamp(returnsTotal + riskTotal + fundTotal + otherTotal))

	if !isFinite(total) {
		return nil, fmt.Errorf("fund %d total score: %w", fund.ID, contracts.ErrNonFinite)
	}

	rec := &contracts.ScoreRecord{
		FundID:      fund.ID,
		ScoreDate:   scoreDate,
		Subcategory: fund.Subcategory,

		Volatility:       Round4Ptr(risk.Volatility),
		MaxDrawdown:      Round4Ptr(risk.MaxDrawdown),
		SharpeRatio:      Round4Ptr(risk.SharpeRatio),
		CaptureRatio:     Round4Ptr(risk.CaptureRatio),
		VolatilityScore:  Round2Ptr(risk.VolatilityScore),
		DrawdownScore:    Round2Ptr(risk.DrawdownScore),
		SharpeScore:      Round2Ptr(risk.SharpeScore),
		DownsideVolScore: Round2Ptr(risk.DownsideVolScore),

		CaptureScore:      Round2Ptr(risk.CaptureScore),
		HistoryDepthScore: Round2Ptr(risk.HistoryDepthScore),

		ExpenseScore:     Round2(fnd.ExpenseScore),
		AumScore:         Round2(fnd.AumScore),
		AgeScore:         Round2(fnd.AgeScore),
		ExpenseDefaulted: fnd.ExpenseDefaulted,
		AumDefaulted:     fnd.AumDefaulted,
		AgeDefaulted:     fnd.AgeDefaulted,

		HistoricalReturnsTotal: returnsTotal,
		RiskGradeTotal:         riskTotal,
		FundamentalsTotal:      fundTotal,
		OtherMetricsTotal:      otherTotal,
		TotalScore:             total,

		Recommendation: s.policy.Recommendation.Label(total, nil),

		PolicyVersion: s.policy.Meta.Version,
		PolicyHash:    s.policyHash,
	}

	for name, res := range rets.Horizons {
		applyHorizon(rec, name, res)
	}

	s.logger.WithFields(map[string]interface{}{
		"fund_id":     fund.ID,
		"subcategory": fund.Subcategory,
		"navs":        len(clean),
		"total_score": total,
	}).Debug("Scored fund")

	return rec, nil
}

// scorableNavs drops observations that must never reach a calculator:
// non-positive values and estimated provenance.
func scorableNavs(navs []contracts.NavObservation) []contracts.NavObservation {
	clean := make([]contracts.NavObservation, 0, len(navs))
	for _, n := range navs {
		if n.Value > 0 && n.Source.Scorable() {
			clean = append(clean, n)
		}
	}
	return clean
}

func applyHorizon(rec *contracts.ScoreRecord, name string, res HorizonResult) {
	pct := Round4Ptr(res.ReturnPct)
	score := Round2Ptr(res.Score)

	switch name {
	case "3m":
		rec.Return3MPct, rec.Return3MScore = pct, score
	case "6m":
		rec.Return6MPct, rec.Return6MScore = pct, score
	case "1y":
		rec.Return1YPct, rec.Return1YScore = pct, score
	case "3y":
		rec.Return3YPct, rec.Return3YScore = pct, score
	case "5y":
		rec.Return5YPct, rec.Return5YScore = pct, score
	case "ytd":
		rec.ReturnYTDPct, rec.ReturnYTDScore = pct, score
	}
}
