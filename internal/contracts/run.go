package contracts

import "time"

// RunStatus is the terminal (or in-flight) state of a scoring run.
type RunStatus string

const (
	RunRunning            RunStatus = "running"
	RunCompleted          RunStatus = "completed"
	RunCompletedWithSkips RunStatus = "completed_with_skips" // some funds excluded or failed
	RunFailed             RunStatus = "failed"               // storage failure, aborted
)

// RunSummary is the structured result of one batch run. It is created
// when the run starts, persisted, and finalized when the run ends, so a
// crashed run stays visible as "running" until someone resumes it.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	ScoreDate time.Time `json:"score_date"`
	Trigger   string    `json:"trigger"` // cli, api, cron
	Status    RunStatus `json:"status"`

	FundsProcessed int `json:"funds_processed"`
	FundsScored    int `json:"funds_scored"`
	FundsExcluded  int `json:"funds_excluded"`
	FundsFailed    int `json:"funds_failed"`
	GroupsRanked   int `json:"groups_ranked"`
	GroupsSkipped  int `json:"groups_skipped"` // below minimum peer count

	PolicyVersion string `json:"policy_version"`
	PolicyHash    string `json:"policy_hash"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Duration returns elapsed time, using now for unfinished runs.
func (r *RunSummary) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// Checkpoint marks one fund as fully scored within a run date, so a
// resumed run can skip it.
type Checkpoint struct {
	ScoreDate   time.Time `json:"score_date"`
	FundID      int64     `json:"fund_id"`
	CompletedAt time.Time `json:"completed_at"`
}
