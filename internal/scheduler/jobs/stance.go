package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/adivish/fundlens/internal/elivate"
	"github.com/adivish/fundlens/pkg/logger"
)

// MarketStanceJob refreshes the ELIVATE stance each weekday morning,
// after the macro indicator collectors have run.
type MarketStanceJob struct {
	service *elivate.Service
	logger  *logger.Logger
}

func NewMarketStanceJob(svc *elivate.Service, log *logger.Logger) *MarketStanceJob {
	return &MarketStanceJob{
		service: svc,
		logger:  log,
	}
}

func (j *MarketStanceJob) Name() string {
	return "market_stance"
}

func (j *MarketStanceJob) Schedule() string {
	return "0 0 8 * * MON-FRI"
}

func (j *MarketStanceJob) Run(ctx context.Context) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	score, err := j.service.ComputeAndStore(ctx, today)
	if err != nil {
		return fmt.Errorf("compute market stance: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"total":  score.Total,
		"stance": string(score.Stance),
	}).Info("Scheduled market stance refresh completed")

	return nil
}
