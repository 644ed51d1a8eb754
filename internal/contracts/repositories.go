package contracts

import (
	"context"
	"time"
)

// Repository interfaces are defined here and implemented by the store
// packages, so the batch engine and API can be tested against fakes.

// FundRepository reads the fund master.
type FundRepository interface {
	GetAll(ctx context.Context) ([]*Fund, error)
	GetByID(ctx context.Context, id int64) (*Fund, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Fund, error)
}

// NavRepository reads NAV history. Implementations return only
// observations whose provenance is scorable, ordered by date ascending.
type NavRepository interface {
	GetHistory(ctx context.Context, fundID int64) ([]NavObservation, error)
	CountByFund(ctx context.Context) (map[int64]int, error)
	LatestDate(ctx context.Context) (time.Time, error)
}

// ScoreRepository persists and reads score records.
type ScoreRepository interface {
	Upsert(ctx context.Context, rec *ScoreRecord) error
	GetByDate(ctx context.Context, date time.Time) ([]*ScoreRecord, error)
	GetByFundAndDate(ctx context.Context, fundID int64, date time.Time) (*ScoreRecord, error)
	GetTop(ctx context.Context, date time.Time, subcategory string, limit int) ([]*ScoreRecord, error)
	// UpdateRanking writes the ranking fields and recommendation for
	// every record of one subcategory in a single transaction.
	UpdateRanking(ctx context.Context, date time.Time, subcategory string, recs []*ScoreRecord) error
}

// CheckpointRepository tracks per-fund completion within a run date.
type CheckpointRepository interface {
	Completed(ctx context.Context, date time.Time) (map[int64]bool, error)
	Mark(ctx context.Context, date time.Time, fundID int64) error
	Clear(ctx context.Context, date time.Time) error
}

// RunRepository persists run summaries.
type RunRepository interface {
	Create(ctx context.Context, run *RunSummary) error
	Finish(ctx context.Context, run *RunSummary) error
	GetLatest(ctx context.Context, limit int) ([]*RunSummary, error)
	GetByID(ctx context.Context, runID string) (*RunSummary, error)
}
