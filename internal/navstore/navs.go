package navstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adivish/fundlens/internal/contracts"
)

// NavRepository reads NAV history from data.nav_history.
//
// Every query filters to scorable provenance at the source: estimated
// observations exist for display and interpolation elsewhere, and must
// never be handed to a calculator.
type NavRepository struct {
	pool *pgxpool.Pool
}

func NewNavRepository(pool *pgxpool.Pool) *NavRepository {
	return &NavRepository{pool: pool}
}

var scorableSources = []string{
	string(contracts.ProvenancePrimary),
	string(contracts.ProvenanceSecondary),
}

// GetHistory returns a fund's scorable NAV series, oldest first.
func (r *NavRepository) GetHistory(ctx context.Context, fundID int64) ([]contracts.NavObservation, error) {
	query := `
		SELECT fund_id, nav_date, nav_value, source
		FROM data.nav_history
		WHERE fund_id = $1 AND source = ANY($2)
		ORDER BY nav_date
	`

	rows, err := r.pool.Query(ctx, query, fundID, scorableSources)
	if err != nil {
		return nil, fmt.Errorf("failed to query nav history for fund %d: %w", fundID, err)
	}
	defer rows.Close()

	var navs []contracts.NavObservation
	for rows.Next() {
		var n contracts.NavObservation
		var source string
		if err := rows.Scan(&n.FundID, &n.Date, &n.Value, &source); err != nil {
			return nil, fmt.Errorf("failed to scan nav row: %w", err)
		}
		n.Source = contracts.Provenance(source)
		navs = append(navs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nav history: %w", err)
	}

	return navs, nil
}

// CountByFund returns the scorable observation count per fund, used to
// skip obviously ineligible funds before fetching full series.
func (r *NavRepository) CountByFund(ctx context.Context) (map[int64]int, error) {
	query := `
		SELECT fund_id, COUNT(*)
		FROM data.nav_history
		WHERE source = ANY($1)
		GROUP BY fund_id
	`

	rows, err := r.pool.Query(ctx, query, scorableSources)
	if err != nil {
		return nil, fmt.Errorf("failed to count nav history: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var fundID int64
		var count int
		if err := rows.Scan(&fundID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan nav count: %w", err)
		}
		counts[fundID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nav counts: %w", err)
	}

	return counts, nil
}

// LatestDate returns the newest scorable NAV date across all funds,
// which anchors a run when no explicit date is given. An empty table
// returns ErrNotFound.
func (r *NavRepository) LatestDate(ctx context.Context) (time.Time, error) {
	query := `SELECT MAX(nav_date) FROM data.nav_history WHERE source = ANY($1)`

	var latest *time.Time
	if err := r.pool.QueryRow(ctx, query, scorableSources).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest nav date: %w", err)
	}
	if latest == nil {
		return time.Time{}, fmt.Errorf("nav history is empty: %w", contracts.ErrNotFound)
	}

	return *latest, nil
}
