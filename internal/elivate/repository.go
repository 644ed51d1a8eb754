package elivate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adivish/fundlens/internal/contracts"
)

// Repository reads indicator readings from data.market_indicators and
// persists stance rows in scores.elivate_scores, one per score date.
type Repository struct {
	pool *pgxpool.Pool
}

var _ Store = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LatestReadings returns, per indicator, the most recent reading on or
// before asOf. Indicators with no reading by then are simply absent.
func (r *Repository) LatestReadings(ctx context.Context, asOf time.Time) (map[string]float64, error) {
	query := `
		SELECT DISTINCT ON (indicator) indicator, value
		FROM data.market_indicators
		WHERE reading_date <= $1
		ORDER BY indicator, reading_date DESC
	`

	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query market indicators: %w", err)
	}
	defer rows.Close()

	readings := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan indicator row: %w", err)
		}
		readings[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating market indicators: %w", err)
	}

	return readings, nil
}

const elivateColumns = `
	score_date,
	external_influence_score, local_story_score, inflation_rates_score,
	valuation_earnings_score, allocation_capital_score, trends_sentiments_score,
	total_elivate_score, market_stance
`

// Upsert writes one stance row keyed on score_date.
func (r *Repository) Upsert(ctx context.Context, s *Score) error {
	query := `
		INSERT INTO scores.elivate_scores (` + elivateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (score_date) DO UPDATE SET
			external_influence_score = EXCLUDED.external_influence_score,
			local_story_score = EXCLUDED.local_story_score,
			inflation_rates_score = EXCLUDED.inflation_rates_score,
			valuation_earnings_score = EXCLUDED.valuation_earnings_score,
			allocation_capital_score = EXCLUDED.allocation_capital_score,
			trends_sentiments_score = EXCLUDED.trends_sentiments_score,
			total_elivate_score = EXCLUDED.total_elivate_score,
			market_stance = EXCLUDED.market_stance,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		s.ScoreDate,
		s.ExternalInfluence, s.LocalStory, s.InflationRates,
		s.ValuationEarnings, s.AllocationCapital, s.TrendsSentiments,
		s.Total, string(s.Stance),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert elivate score for %s: %w",
			s.ScoreDate.Format("2006-01-02"), err)
	}

	return nil
}

// GetCurrent returns the most recent stance row.
func (r *Repository) GetCurrent(ctx context.Context) (*Score, error) {
	query := `
		SELECT ` + elivateColumns + `
		FROM scores.elivate_scores
		ORDER BY score_date DESC
		LIMIT 1
	`

	var s Score
	var stance string
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.ScoreDate,
		&s.ExternalInfluence, &s.LocalStory, &s.InflationRates,
		&s.ValuationEarnings, &s.AllocationCapital, &s.TrendsSentiments,
		&s.Total, &stance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no elivate scores stored: %w", contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query current elivate score: %w", err)
	}
	s.Stance = Stance(stance)

	return &s, nil
}
