package scorestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckpointRepository tracks which funds finished the score phase for
// a date, in scores.scoring_checkpoints. A resumed run skips marked
// funds; a fresh rescore clears the date first.
type CheckpointRepository struct {
	pool *pgxpool.Pool
}

func NewCheckpointRepository(pool *pgxpool.Pool) *CheckpointRepository {
	return &CheckpointRepository{pool: pool}
}

// Completed returns the set of fund ids already scored for the date.
func (r *CheckpointRepository) Completed(ctx context.Context, date time.Time) (map[int64]bool, error) {
	query := `SELECT fund_id FROM scores.scoring_checkpoints WHERE score_date = $1`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	done := make(map[int64]bool)
	for rows.Next() {
		var fundID int64
		if err := rows.Scan(&fundID); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		done[fundID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoints: %w", err)
	}

	return done, nil
}

// Mark records one fund as scored. Marking twice is a no-op.
func (r *CheckpointRepository) Mark(ctx context.Context, date time.Time, fundID int64) error {
	query := `
		INSERT INTO scores.scoring_checkpoints (score_date, fund_id, completed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (score_date, fund_id) DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, date, fundID); err != nil {
		return fmt.Errorf("failed to mark checkpoint for fund %d: %w", fundID, err)
	}

	return nil
}

// Clear drops every checkpoint for the date.
func (r *CheckpointRepository) Clear(ctx context.Context, date time.Time) error {
	query := `DELETE FROM scores.scoring_checkpoints WHERE score_date = $1`

	if _, err := r.pool.Exec(ctx, query, date); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}

	return nil
}
