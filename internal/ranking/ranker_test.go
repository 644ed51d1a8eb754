package ranking

import (
	"math/rand"
	"testing"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorepolicy"
	"github.com/adivish/fundlens/pkg/logger"
)

func rec(fundID int64, subcategory string, total float64) *contracts.ScoreRecord {
	return &contracts.ScoreRecord{
		FundID:      fundID,
		Subcategory: subcategory,
		TotalScore:  total,
	}
}

// smallGroupPolicy lowers the peer minimum so tiny fixtures rank.
func smallGroupPolicy(min int) *scorepolicy.Policy {
	p := scorepolicy.Default()
	p.Ranking.MinPeerGroup = min
	return p
}

func TestRankGroupOrdering(t *testing.T) {
	r := NewRanker(smallGroupPolicy(2), logger.NewNop())

	group := []*contracts.ScoreRecord{
		rec(1, "Large Cap", 70),
		rec(2, "Large Cap", 90),
		rec(3, "Large Cap", 50),
	}

	if !r.RankGroup(group) {
		t.Fatal("expected group of 3 to rank with min 2")
	}

	// Sorted in place: 90, 70, 50.
	wantOrder := []int64{2, 1, 3}
	wantPercentile := []float64{100, 50, 0}
	wantQuartile := []int{1, 2, 4}
	wantLabel := []contracts.Recommendation{contracts.StrongBuy, contracts.Buy, contracts.Hold}

	for i, g := range group {
		if g.FundID != wantOrder[i] {
			t.Fatalf("position %d: fund %d, want %d", i, g.FundID, wantOrder[i])
		}
		if *g.SubcategoryRank != i+1 {
			t.Errorf("fund %d rank = %d, want %d", g.FundID, *g.SubcategoryRank, i+1)
		}
		if *g.SubcategoryTotal != 3 {
			t.Errorf("fund %d group total = %d, want 3", g.FundID, *g.SubcategoryTotal)
		}
		if *g.SubcategoryPercentile != wantPercentile[i] {
			t.Errorf("fund %d percentile = %v, want %v", g.FundID, *g.SubcategoryPercentile, wantPercentile[i])
		}
		if *g.Quartile != wantQuartile[i] {
			t.Errorf("fund %d quartile = %d, want %d", g.FundID, *g.Quartile, wantQuartile[i])
		}
		if g.Recommendation != wantLabel[i] {
			t.Errorf("fund %d label = %s, want %s", g.FundID, g.Recommendation, wantLabel[i])
		}
	}
}

func TestRankGroupTieBreak(t *testing.T) {
	r := NewRanker(smallGroupPolicy(2), logger.NewNop())

	group := []*contracts.ScoreRecord{
		rec(9, "Flexi Cap", 60),
		rec(4, "Flexi Cap", 60),
		rec(7, "Flexi Cap", 60),
	}
	r.RankGroup(group)

	// Equal totals rank by fund ID ascending, each with a distinct
	// rank. No shared ranks: reruns must produce identical rows.
	wantOrder := []int64{4, 7, 9}
	for i, g := range group {
		if g.FundID != wantOrder[i] {
			t.Fatalf("position %d: fund %d, want %d", i, g.FundID, wantOrder[i])
		}
		if *g.SubcategoryRank != i+1 {
			t.Errorf("fund %d rank = %d, want %d", g.FundID, *g.SubcategoryRank, i+1)
		}
	}
}

func TestRankGroupTooSmall(t *testing.T) {
	r := NewRanker(scorepolicy.Default(), logger.NewNop())

	group := []*contracts.ScoreRecord{
		rec(1, "Sector - PSU", 82),
		rec(2, "Sector - PSU", 55),
		rec(3, "Sector - PSU", 31),
	}

	if r.RankGroup(group) {
		t.Fatal("3 funds must not rank with a minimum of 8")
	}

	for _, g := range group {
		if g.SubcategoryRank != nil || g.SubcategoryTotal != nil ||
			g.SubcategoryPercentile != nil || g.Quartile != nil {
			t.Errorf("fund %d: rank fields must stay nil in a small group", g.FundID)
		}
	}

	// Unranked labels come from total score alone and cap at BUY.
	if group[0].Recommendation != contracts.Buy {
		t.Errorf("fund 1 label = %s, want BUY", group[0].Recommendation)
	}
	if group[1].Recommendation != contracts.Hold {
		t.Errorf("fund 2 label = %s, want HOLD", group[1].Recommendation)
	}
	if group[2].Recommendation != contracts.StrongSell {
		t.Errorf("fund 3 label = %s, want STRONG_SELL", group[2].Recommendation)
	}
}

func TestPercentileEndpointsAndQuartiles(t *testing.T) {
	r := NewRanker(scorepolicy.Default(), logger.NewNop())

	group := make([]*contracts.ScoreRecord, 0, 8)
	for i := 0; i < 8; i++ {
		group = append(group, rec(int64(i+1), "Small Cap", float64(80-i*5)))
	}

	if !r.RankGroup(group) {
		t.Fatal("8 funds meet the default minimum")
	}

	if *group[0].SubcategoryPercentile != 100 {
		t.Errorf("top percentile = %v, want 100", *group[0].SubcategoryPercentile)
	}
	if *group[7].SubcategoryPercentile != 0 {
		t.Errorf("bottom percentile = %v, want 0", *group[7].SubcategoryPercentile)
	}

	// Eight evenly spaced percentiles split 2/2/2/2 across quartiles.
	wantQuartiles := []int{1, 1, 2, 2, 3, 3, 4, 4}
	for i, g := range group {
		if *g.Quartile != wantQuartiles[i] {
			t.Errorf("rank %d quartile = %d, want %d (percentile %v)",
				i+1, *g.Quartile, wantQuartiles[i], *g.SubcategoryPercentile)
		}
	}
}

func TestNewEntrantReshufflesRanks(t *testing.T) {
	r := NewRanker(smallGroupPolicy(2), logger.NewNop())

	group := []*contracts.ScoreRecord{
		rec(1, "Mid Cap", 90),
		rec(2, "Mid Cap", 70),
		rec(3, "Mid Cap", 50),
	}
	r.RankGroup(group)

	// A new fund joins the subcategory; reranking the same records must
	// overwrite every stale rank field.
	group = append(group, rec(4, "Mid Cap", 95))
	if !r.RankGroup(group) {
		t.Fatal("expected group of 4 to rank with min 2")
	}

	wantOrder := []int64{4, 1, 2, 3}
	wantPercentile := []float64{100, 66.67, 33.33, 0}
	wantQuartile := []int{1, 2, 3, 4}
	wantLabel := []contracts.Recommendation{contracts.StrongBuy, contracts.Buy, contracts.Hold, contracts.Hold}

	for i, g := range group {
		if g.FundID != wantOrder[i] {
			t.Fatalf("position %d: fund %d, want %d", i, g.FundID, wantOrder[i])
		}
		if *g.SubcategoryRank != i+1 {
			t.Errorf("fund %d rank = %d, want %d", g.FundID, *g.SubcategoryRank, i+1)
		}
		if *g.SubcategoryTotal != 4 {
			t.Errorf("fund %d group total = %d, want 4", g.FundID, *g.SubcategoryTotal)
		}
		if *g.SubcategoryPercentile != wantPercentile[i] {
			t.Errorf("fund %d percentile = %v, want %v", g.FundID, *g.SubcategoryPercentile, wantPercentile[i])
		}
		if *g.Quartile != wantQuartile[i] {
			t.Errorf("fund %d quartile = %d, want %d", g.FundID, *g.Quartile, wantQuartile[i])
		}
		if g.Recommendation != wantLabel[i] {
			t.Errorf("fund %d label = %s, want %s", g.FundID, g.Recommendation, wantLabel[i])
		}
	}
}

func TestRankAll(t *testing.T) {
	r := NewRanker(scorepolicy.Default(), logger.NewNop())

	recs := make([]*contracts.ScoreRecord, 0, 11)
	for i := 0; i < 8; i++ {
		recs = append(recs, rec(int64(i+1), "Large Cap", float64(75-i)))
	}
	for i := 0; i < 3; i++ {
		recs = append(recs, rec(int64(100+i), "Sector - Energy", float64(60-i)))
	}

	results := r.RankAll(recs)

	if len(results) != 2 {
		t.Fatalf("groups = %d, want 2", len(results))
	}

	// Alphabetical group order.
	if results[0].Subcategory != "Large Cap" || !results[0].Ranked {
		t.Errorf("first group = %s ranked=%v, want ranked Large Cap", results[0].Subcategory, results[0].Ranked)
	}
	if results[1].Subcategory != "Sector - Energy" || results[1].Ranked {
		t.Errorf("second group = %s ranked=%v, want unranked Sector - Energy", results[1].Subcategory, results[1].Ranked)
	}

	for _, g := range results[1].Records {
		if g.HasRanking() {
			t.Errorf("fund %d: unranked group must not carry rank fields", g.FundID)
		}
		if g.Recommendation == "" {
			t.Errorf("fund %d: unranked funds still get a label", g.FundID)
		}
	}
}

func TestRankPermutationInvariant(t *testing.T) {
	policy := scorepolicy.Default()

	build := func() []*contracts.ScoreRecord {
		recs := make([]*contracts.ScoreRecord, 0, 20)
		for i := 0; i < 20; i++ {
			recs = append(recs, rec(int64(i+1), "ELSS", float64((i*37)%90)))
		}
		return recs
	}

	first := build()
	NewRanker(policy, logger.NewNop()).RankGroup(first)

	second := build()
	rand.New(rand.NewSource(1)).Shuffle(len(second), func(i, j int) {
		second[i], second[j] = second[j], second[i]
	})
	NewRanker(policy, logger.NewNop()).RankGroup(second)

	byID := make(map[int64]*contracts.ScoreRecord, len(second))
	for _, g := range second {
		byID[g.FundID] = g
	}
	for _, want := range first {
		got := byID[want.FundID]
		if *got.SubcategoryRank != *want.SubcategoryRank ||
			*got.SubcategoryPercentile != *want.SubcategoryPercentile ||
			got.Recommendation != want.Recommendation {
			t.Errorf("fund %d: input order changed the outcome", want.FundID)
		}
	}
}
