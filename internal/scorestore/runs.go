package scorestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adivish/fundlens/internal/contracts"
)

// RunRepository persists run summaries in scores.scoring_runs. A run
// is inserted as soon as it starts, so a crash leaves a visible
// "running" row instead of silence.
type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

const runColumns = `
	run_id, score_date, trigger_source, status,
	funds_processed, funds_scored, funds_excluded, funds_failed,
	groups_ranked, groups_skipped,
	policy_version, policy_hash,
	started_at, finished_at, COALESCE(error_message, '')
`

// Create inserts the run in its starting state.
func (r *RunRepository) Create(ctx context.Context, run *contracts.RunSummary) error {
	query := `
		INSERT INTO scores.scoring_runs (
			run_id, score_date, trigger_source, status,
			policy_version, policy_hash, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		run.RunID, run.ScoreDate, run.Trigger, string(run.Status),
		run.PolicyVersion, run.PolicyHash, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.RunID, err)
	}

	return nil
}

// Finish writes the run's terminal state and counters.
func (r *RunRepository) Finish(ctx context.Context, run *contracts.RunSummary) error {
	query := `
		UPDATE scores.scoring_runs SET
			status = $1,
			funds_processed = $2,
			funds_scored = $3,
			funds_excluded = $4,
			funds_failed = $5,
			groups_ranked = $6,
			groups_skipped = $7,
			finished_at = $8,
			error_message = NULLIF($9, '')
		WHERE run_id = $10
	`

	tag, err := r.pool.Exec(ctx, query,
		string(run.Status),
		run.FundsProcessed, run.FundsScored, run.FundsExcluded, run.FundsFailed,
		run.GroupsRanked, run.GroupsSkipped,
		run.FinishedAt, run.Error,
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.RunID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s: %w", run.RunID, contracts.ErrNotFound)
	}

	return nil
}

// GetLatest returns the most recently started runs, newest first.
func (r *RunRepository) GetLatest(ctx context.Context, limit int) ([]*contracts.RunSummary, error) {
	query := `
		SELECT ` + runColumns + `
		FROM scores.scoring_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*contracts.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetByID returns one run, or ErrNotFound.
func (r *RunRepository) GetByID(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM scores.scoring_runs WHERE run_id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return run, nil
}

func scanRun(row rowScanner) (*contracts.RunSummary, error) {
	var run contracts.RunSummary
	var status string

	err := row.Scan(
		&run.RunID, &run.ScoreDate, &run.Trigger, &status,
		&run.FundsProcessed, &run.FundsScored, &run.FundsExcluded, &run.FundsFailed,
		&run.GroupsRanked, &run.GroupsSkipped,
		&run.PolicyVersion, &run.PolicyHash,
		&run.StartedAt, &run.FinishedAt, &run.Error,
	)
	if err != nil {
		return nil, err
	}

	run.Status = contracts.RunStatus(status)
	return &run, nil
}
