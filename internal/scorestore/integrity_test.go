package scorestore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/ranking"
	"github.com/adivish/fundlens/internal/scorepolicy"
	"github.com/adivish/fundlens/pkg/logger"
)

type fakeScoreRepo struct {
	recs []*contracts.ScoreRecord
}

var _ contracts.ScoreRepository = (*fakeScoreRepo)(nil)

func (f *fakeScoreRepo) Upsert(ctx context.Context, rec *contracts.ScoreRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeScoreRepo) GetByDate(ctx context.Context, date time.Time) ([]*contracts.ScoreRecord, error) {
	return f.recs, nil
}

func (f *fakeScoreRepo) GetByFundAndDate(ctx context.Context, fundID int64, date time.Time) (*contracts.ScoreRecord, error) {
	for _, r := range f.recs {
		if r.FundID == fundID {
			return r, nil
		}
	}
	return nil, contracts.ErrNotFound
}

func (f *fakeScoreRepo) GetTop(ctx context.Context, date time.Time, subcategory string, limit int) ([]*contracts.ScoreRecord, error) {
	return f.recs, nil
}

func (f *fakeScoreRepo) UpdateRanking(ctx context.Context, date time.Time, subcategory string, recs []*contracts.ScoreRecord) error {
	return nil
}

// buildRec returns an arithmetically consistent unranked record.
func buildRec(fundID int64, subcategory string, returns, risk, fundamentals, other float64) *contracts.ScoreRecord {
	p := scorepolicy.Default()
	total := p.Composite.Bound.Clamp(returns + risk + fundamentals + other)
	return &contracts.ScoreRecord{
		FundID:                 fundID,
		ScoreDate:              time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC),
		Subcategory:            subcategory,
		HistoricalReturnsTotal: returns,
		RiskGradeTotal:         risk,
		FundamentalsTotal:      fundamentals,
		OtherMetricsTotal:      other,
		TotalScore:             total,
		Recommendation:         p.Recommendation.Label(total, nil),
		PolicyVersion:          "1.0.0",
		PolicyHash:             "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	}
}

// rankedFixture builds a ranked large group plus an unranked small one,
// exactly as the rank phase would leave them.
func rankedFixture(t *testing.T) []*contracts.ScoreRecord {
	t.Helper()

	var recs []*contracts.ScoreRecord
	for i := 0; i < 10; i++ {
		recs = append(recs, buildRec(int64(i+1), "Large Cap",
			float64(30-i), 20, 12, 6))
	}
	for i := 0; i < 3; i++ {
		recs = append(recs, buildRec(int64(100+i), "Sector - PSU",
			float64(20-i), 15, 10, 4))
	}

	for _, group := range ranking.GroupBySubcategory(recs) {
		ranking.NewRanker(scorepolicy.Default(), logger.NewNop()).RankGroup(group)
	}
	return recs
}

func TestVerifyCleanRows(t *testing.T) {
	recs := rankedFixture(t)
	v := NewVerifier(&fakeScoreRepo{recs: recs}, scorepolicy.Default(), logger.NewNop())

	violations, err := v.Verify(context.Background(), time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	for _, violation := range violations {
		t.Errorf("unexpected violation: %s", violation)
	}
}

func TestVerifyCatchesTamperedTotal(t *testing.T) {
	recs := rankedFixture(t)
	recs[0].TotalScore += 5

	v := NewVerifier(&fakeScoreRepo{recs: recs}, scorepolicy.Default(), logger.NewNop())
	violations, err := v.Verify(context.Background(), recs[0].ScoreDate)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if !hasViolation(violations, recs[0].FundID, "total_score") {
		t.Errorf("expected a total_score violation, got %v", violations)
	}
}

func TestVerifyCatchesPartialRanking(t *testing.T) {
	recs := rankedFixture(t)
	recs[3].Quartile = nil

	v := NewVerifier(&fakeScoreRepo{recs: recs}, scorepolicy.Default(), logger.NewNop())
	violations, err := v.Verify(context.Background(), recs[0].ScoreDate)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if !hasViolation(violations, recs[3].FundID, "ranking") {
		t.Errorf("expected a ranking violation, got %v", violations)
	}
}

func TestVerifyCatchesRankedSmallGroup(t *testing.T) {
	recs := rankedFixture(t)

	// Force rank fields onto a member of the 3-fund group.
	var small *contracts.ScoreRecord
	for _, r := range recs {
		if r.Subcategory == "Sector - PSU" {
			small = r
			break
		}
	}
	rank, total, pct, quartile := 1, 3, 100.0, 1
	small.SubcategoryRank = &rank
	small.SubcategoryTotal = &total
	small.SubcategoryPercentile = &pct
	small.Quartile = &quartile

	v := NewVerifier(&fakeScoreRepo{recs: recs}, scorepolicy.Default(), logger.NewNop())
	violations, err := v.Verify(context.Background(), small.ScoreDate)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if !hasViolation(violations, small.FundID, "ranking") {
		t.Errorf("expected a ranking violation for the small group, got %v", violations)
	}
}

func TestVerifyCatchesTamperedPercentile(t *testing.T) {
	recs := rankedFixture(t)

	// Rank 5 of 10 must sit at 55.56. Push it to 60: still inside
	// quartile 2 and inside [0, 100], so only the rank arithmetic
	// can expose it.
	*recs[4].SubcategoryPercentile = 60

	v := NewVerifier(&fakeScoreRepo{recs: recs}, scorepolicy.Default(), logger.NewNop())
	violations, err := v.Verify(context.Background(), recs[0].ScoreDate)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if !hasViolation(violations, recs[4].FundID, "subcategory_percentile") {
		t.Errorf("expected a subcategory_percentile violation, got %v", violations)
	}
}

func TestVerifyCatchesWrongLabel(t *testing.T) {
	recs := rankedFixture(t)
	recs[9].Recommendation = contracts.StrongBuy // bottom of the group

	v := NewVerifier(&fakeScoreRepo{recs: recs}, scorepolicy.Default(), logger.NewNop())
	violations, err := v.Verify(context.Background(), recs[0].ScoreDate)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if !hasViolation(violations, recs[9].FundID, "recommendation") {
		t.Errorf("expected a recommendation violation, got %v", violations)
	}
}

func hasViolation(violations []Violation, fundID int64, field string) bool {
	for _, v := range violations {
		if v.FundID == fundID && v.Field == field {
			return true
		}
	}
	return false
}

func ExampleViolation_String() {
	v := Violation{FundID: 7, Field: "total_score", Detail: "62.40 does not match clamped component sum 58.90"}
	fmt.Println(v)
	// Output: fund 7 total_score: 62.40 does not match clamped component sum 58.90
}
