package jobs

import (
	"context"
	"fmt"

	"github.com/adivish/fundlens/internal/batch"
	"github.com/adivish/fundlens/pkg/config"
	"github.com/adivish/fundlens/pkg/logger"
)

// DailyScoringJob runs the full scoring batch for the latest NAV date.
// Scheduled for weekday early mornings, after AMFI publishes the
// previous day's NAVs.
type DailyScoringJob struct {
	engine *batch.Engine
	cfg    *config.Config
	logger *logger.Logger
}

func NewDailyScoringJob(engine *batch.Engine, cfg *config.Config, log *logger.Logger) *DailyScoringJob {
	return &DailyScoringJob{
		engine: engine,
		cfg:    cfg,
		logger: log,
	}
}

func (j *DailyScoringJob) Name() string {
	return "daily_scoring"
}

func (j *DailyScoringJob) Schedule() string {
	return j.cfg.Scheduler.DailyRun
}

// Run scores and ranks every fund. The zero score date makes the
// engine anchor on the latest scorable NAV date.
func (j *DailyScoringJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled scoring run")

	sum, err := j.engine.Run(ctx, batch.RunConfig{
		Trigger:         batch.TriggerCron,
		Workers:         j.cfg.Scoring.Workers,
		BatchSize:       j.cfg.Scoring.BatchSize,
		WriteRatePerSec: j.cfg.Scoring.WriteRatePerSec,
	})
	if err != nil {
		return fmt.Errorf("scoring run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":   sum.RunID,
		"status":   string(sum.Status),
		"scored":   sum.FundsScored,
		"excluded": sum.FundsExcluded,
		"failed":   sum.FundsFailed,
	}).Info("Scheduled scoring run completed")

	return nil
}
