package ranking

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorepolicy"
	"github.com/adivish/fundlens/pkg/logger"
)

// Ranker assigns peer ranks within subcategory groups. Ranking is pure
// position arithmetic over already-computed totals; it never rescores.
type Ranker struct {
	policy *scorepolicy.Policy
	logger *logger.Logger
}

// GroupResult is one subcategory's ranking outcome.
type GroupResult struct {
	Subcategory string
	Records     []*contracts.ScoreRecord
	// Ranked is false for groups below the minimum peer count. Their
	// records still carry a recommendation, derived from total score
	// alone, with all rank fields nil.
	Ranked bool
}

func NewRanker(p *scorepolicy.Policy, log *logger.Logger) *Ranker {
	return &Ranker{policy: p, logger: log}
}

// RankAll groups records by subcategory and ranks each group. Results
// come back in subcategory order so persistence walks them the same
// way every run.
func (r *Ranker) RankAll(recs []*contracts.ScoreRecord) []GroupResult {
	groups := GroupBySubcategory(recs)

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]GroupResult, 0, len(names))
	ranked, skipped := 0, 0
	for _, name := range names {
		group := groups[name]
		ok := r.RankGroup(group)
		if ok {
			ranked++
		} else {
			skipped++
		}
		results = append(results, GroupResult{Subcategory: name, Records: group, Ranked: ok})
	}

	r.logger.WithFields(map[string]interface{}{
		"funds":          len(recs),
		"groups":         len(results),
		"ranked_groups":  ranked,
		"skipped_groups": skipped,
	}).Info("Peer ranking completed")

	return results
}

// RankGroup ranks one subcategory group in place and reports whether
// the group was large enough to rank.
//
// Order: total score descending, fund ID ascending on ties. Percentile
// is linear in rank position: the top fund gets 100, the bottom 0.
func (r *Ranker) RankGroup(group []*contracts.ScoreRecord) bool {
	n := len(group)
	if n < r.policy.Ranking.MinPeerGroup {
		for _, rec := range group {
			rec.SubcategoryRank = nil
			rec.SubcategoryTotal = nil
			rec.SubcategoryPercentile = nil
			rec.Quartile = nil
			rec.Recommendation = r.policy.Recommendation.Label(rec.TotalScore, nil)
		}
		return false
	}

	sort.Slice(group, func(i, j int) bool {
		if group[i].TotalScore != group[j].TotalScore {
			return group[i].TotalScore > group[j].TotalScore
		}
		return group[i].FundID < group[j].FundID
	})

	for i, rec := range group {
		rank := i + 1
		total := n
		percentile := Percentile(rank, n)
		quartile := r.policy.Ranking.Quartile(percentile)

		rec.SubcategoryRank = &rank
		rec.SubcategoryTotal = &total
		rec.SubcategoryPercentile = &percentile
		rec.Quartile = &quartile
		rec.Recommendation = r.policy.Recommendation.Label(rec.TotalScore, &quartile)
	}

	return true
}

// Percentile maps a rank position inside a group of the given size to
// the linear peer percentile, rounded to two decimals: rank 1 maps to
// 100, the last rank to 0. A single-member group has no spread, so its
// only rank maps to 100.
func Percentile(rank, size int) float64 {
	if size < 2 {
		return 100
	}
	return roundPercentile((1 - float64(rank-1)/float64(size-1)) * 100)
}

// GroupBySubcategory splits records into their peer groups.
func GroupBySubcategory(recs []*contracts.ScoreRecord) map[string][]*contracts.ScoreRecord {
	groups := make(map[string][]*contracts.ScoreRecord)
	for _, rec := range recs {
		groups[rec.Subcategory] = append(groups[rec.Subcategory], rec)
	}
	return groups
}

func roundPercentile(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
