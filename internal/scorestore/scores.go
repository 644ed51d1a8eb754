package scorestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adivish/fundlens/internal/contracts"
)

// ScoreRepository persists score records in scores.fund_scores.
// Writes are upserts keyed on (fund_id, score_date): reruns overwrite
// in place and produce the same rows.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

const scoreColumns = `
	fund_id, score_date, subcategory,
	return_3m_pct, return_6m_pct, return_1y_pct,
	return_3y_pct, return_5y_pct, return_ytd_pct,
	return_3m_score, return_6m_score, return_1y_score,
	return_3y_score, return_5y_score, return_ytd_score,
	volatility, max_drawdown, sharpe_ratio, capture_ratio,
	volatility_score, drawdown_score, sharpe_score, downside_vol_score,
	capture_score, history_depth_score,
	expense_score, aum_score, age_score,
	expense_defaulted, aum_defaulted, age_defaulted,
	historical_returns_total, risk_grade_total, fundamentals_total,
	other_metrics_total, total_score,
	subcategory_rank, subcategory_total, subcategory_percentile, quartile,
	recommendation,
	run_id, policy_version, policy_hash
`

// Upsert writes one record. Ranking fields go in as given, normally
// nil during the score phase.
func (r *ScoreRepository) Upsert(ctx context.Context, rec *contracts.ScoreRecord) error {
	query := `
		INSERT INTO scores.fund_scores (` + scoreColumns + `)
		VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19,
			$20, $21, $22, $23,
			$24, $25,
			$26, $27, $28,
			$29, $30, $31,
			$32, $33, $34, $35, $36,
			$37, $38, $39, $40,
			$41,
			$42, $43, $44
		)
		ON CONFLICT (fund_id, score_date) DO UPDATE SET
			subcategory = EXCLUDED.subcategory,
			return_3m_pct = EXCLUDED.return_3m_pct,
			return_6m_pct = EXCLUDED.return_6m_pct,
			return_1y_pct = EXCLUDED.return_1y_pct,
			return_3y_pct = EXCLUDED.return_3y_pct,
			return_5y_pct = EXCLUDED.return_5y_pct,
			return_ytd_pct = EXCLUDED.return_ytd_pct,
			return_3m_score = EXCLUDED.return_3m_score,
			return_6m_score = EXCLUDED.return_6m_score,
			return_1y_score = EXCLUDED.return_1y_score,
			return_3y_score = EXCLUDED.return_3y_score,
			return_5y_score = EXCLUDED.return_5y_score,
			return_ytd_score = EXCLUDED.return_ytd_score,
			volatility = EXCLUDED.volatility,
			max_drawdown = EXCLUDED.max_drawdown,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			capture_ratio = EXCLUDED.capture_ratio,
			volatility_score = EXCLUDED.volatility_score,
			drawdown_score = EXCLUDED.drawdown_score,
			sharpe_score = EXCLUDED.sharpe_score,
			downside_vol_score = EXCLUDED.downside_vol_score,
			capture_score = EXCLUDED.capture_score,
			history_depth_score = EXCLUDED.history_depth_score,
			expense_score = EXCLUDED.expense_score,
			aum_score = EXCLUDED.aum_score,
			age_score = EXCLUDED.age_score,
			expense_defaulted = EXCLUDED.expense_defaulted,
			aum_defaulted = EXCLUDED.aum_defaulted,
			age_defaulted = EXCLUDED.age_defaulted,
			historical_returns_total = EXCLUDED.historical_returns_total,
			risk_grade_total = EXCLUDED.risk_grade_total,
			fundamentals_total = EXCLUDED.fundamentals_total,
			other_metrics_total = EXCLUDED.other_metrics_total,
			total_score = EXCLUDED.total_score,
			subcategory_rank = EXCLUDED.subcategory_rank,
			subcategory_total = EXCLUDED.subcategory_total,
			subcategory_percentile = EXCLUDED.subcategory_percentile,
			quartile = EXCLUDED.quartile,
			recommendation = EXCLUDED.recommendation,
			run_id = EXCLUDED.run_id,
			policy_version = EXCLUDED.policy_version,
			policy_hash = EXCLUDED.policy_hash,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		rec.FundID, rec.ScoreDate, rec.Subcategory,
		rec.Return3MPct, rec.Return6MPct, rec.Return1YPct,
		rec.Return3YPct, rec.Return5YPct, rec.ReturnYTDPct,
		rec.Return3MScore, rec.Return6MScore, rec.Return1YScore,
		rec.Return3YScore, rec.Return5YScore, rec.ReturnYTDScore,
		rec.Volatility, rec.MaxDrawdown, rec.SharpeRatio, rec.CaptureRatio,
		rec.VolatilityScore, rec.DrawdownScore, rec.SharpeScore, rec.DownsideVolScore,
		rec.CaptureScore, rec.HistoryDepthScore,
		rec.ExpenseScore, rec.AumScore, rec.AgeScore,
		rec.ExpenseDefaulted, rec.AumDefaulted, rec.AgeDefaulted,
		rec.HistoricalReturnsTotal, rec.RiskGradeTotal, rec.FundamentalsTotal,
		rec.OtherMetricsTotal, rec.TotalScore,
		rec.SubcategoryRank, rec.SubcategoryTotal, rec.SubcategoryPercentile, rec.Quartile,
		string(rec.Recommendation),
		rec.RunID, rec.PolicyVersion, rec.PolicyHash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert score for fund %d: %w", rec.FundID, err)
	}

	return nil
}

// GetByDate returns every score row for a date, ordered by fund id.
func (r *ScoreRepository) GetByDate(ctx context.Context, date time.Time) ([]*contracts.ScoreRecord, error) {
	query := `
		SELECT ` + scoreColumns + `, created_at, updated_at
		FROM scores.fund_scores
		WHERE score_date = $1
		ORDER BY fund_id
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores for %s: %w", date.Format("2006-01-02"), err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetByFundAndDate returns one score row, or ErrNotFound.
func (r *ScoreRepository) GetByFundAndDate(ctx context.Context, fundID int64, date time.Time) (*contracts.ScoreRecord, error) {
	query := `
		SELECT ` + scoreColumns + `, created_at, updated_at
		FROM scores.fund_scores
		WHERE fund_id = $1 AND score_date = $2
	`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, fundID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("score for fund %d on %s: %w", fundID, date.Format("2006-01-02"), contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score for fund %d: %w", fundID, err)
	}
	return rec, nil
}

// GetTop returns the highest-scoring rows for a date, optionally
// limited to one subcategory. Ordering matches the rank phase: total
// score descending, fund id ascending.
func (r *ScoreRepository) GetTop(ctx context.Context, date time.Time, subcategory string, limit int) ([]*contracts.ScoreRecord, error) {
	query := `
		SELECT ` + scoreColumns + `, created_at, updated_at
		FROM scores.fund_scores
		WHERE score_date = $1 AND ($2 = '' OR subcategory = $2)
		ORDER BY total_score DESC, fund_id
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, date, subcategory, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// UpdateRanking writes the rank phase's output for one subcategory in
// a single transaction: either the whole group's ranking lands or none
// of it does.
func (r *ScoreRepository) UpdateRanking(ctx context.Context, date time.Time, subcategory string, recs []*contracts.ScoreRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin ranking transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE scores.fund_scores SET
			subcategory_rank = $1,
			subcategory_total = $2,
			subcategory_percentile = $3,
			quartile = $4,
			recommendation = $5,
			updated_at = NOW()
		WHERE fund_id = $6 AND score_date = $7
	`

	for _, rec := range recs {
		tag, err := tx.Exec(ctx, query,
			rec.SubcategoryRank, rec.SubcategoryTotal, rec.SubcategoryPercentile, rec.Quartile,
			string(rec.Recommendation),
			rec.FundID, date,
		)
		if err != nil {
			return fmt.Errorf("failed to update ranking for fund %d in %s: %w", rec.FundID, subcategory, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("ranking update for fund %d in %s hit no score row", rec.FundID, subcategory)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit ranking for %s: %w", subcategory, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*contracts.ScoreRecord, error) {
	var rec contracts.ScoreRecord
	var recommendation string

	err := row.Scan(
		&rec.FundID, &rec.ScoreDate, &rec.Subcategory,
		&rec.Return3MPct, &rec.Return6MPct, &rec.Return1YPct,
		&rec.Return3YPct, &rec.Return5YPct, &rec.ReturnYTDPct,
		&rec.Return3MScore, &rec.Return6MScore, &rec.Return1YScore,
		&rec.Return3YScore, &rec.Return5YScore, &rec.ReturnYTDScore,
		&rec.Volatility, &rec.MaxDrawdown, &rec.SharpeRatio, &rec.CaptureRatio,
		&rec.VolatilityScore, &rec.DrawdownScore, &rec.SharpeScore, &rec.DownsideVolScore,
		&rec.CaptureScore, &rec.HistoryDepthScore,
		&rec.ExpenseScore, &rec.AumScore, &rec.AgeScore,
		&rec.ExpenseDefaulted, &rec.AumDefaulted, &rec.AgeDefaulted,
		&rec.HistoricalReturnsTotal, &rec.RiskGradeTotal, &rec.FundamentalsTotal,
		&rec.OtherMetricsTotal, &rec.TotalScore,
		&rec.SubcategoryRank, &rec.SubcategoryTotal, &rec.SubcategoryPercentile, &rec.Quartile,
		&recommendation,
		&rec.RunID, &rec.PolicyVersion, &rec.PolicyHash,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Recommendation = contracts.Recommendation(recommendation)
	return &rec, nil
}

func scanRecords(rows pgx.Rows) ([]*contracts.ScoreRecord, error) {
	var recs []*contracts.ScoreRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score rows: %w", err)
	}
	return recs, nil
}
