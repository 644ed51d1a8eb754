package scheduler

import (
	"context"
	"time"
)

// historyLimit caps how many results each job's history retains.
const historyLimit = 100

// Job is a unit of scheduled work.
type Job interface {
	// Name identifies the job; unique within a scheduler.
	Name() string

	// Run executes the job once.
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds field included.
	// Example: "0 30 1 * * MON-FRI".
	Schedule() string
}

// JobResult records one execution.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory holds the most recent executions of one job.
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond the limit.
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// GetLatestResults returns up to n of the newest results, oldest
// first.
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n == 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns every failed result still in history.
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the fraction of retained runs that
// succeeded.
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	successCount := 0
	for _, result := range h.Results {
		if result.Success {
			successCount++
		}
	}

	return float64(successCount) / float64(len(h.Results))
}
