package elivate

import (
	"context"
	"fmt"
	"time"

	"github.com/adivish/fundlens/pkg/logger"
)

// Store is the persistence surface the service needs. Repository
// implements it; tests substitute a fake.
type Store interface {
	LatestReadings(ctx context.Context, asOf time.Time) (map[string]float64, error)
	Upsert(ctx context.Context, score *Score) error
	GetCurrent(ctx context.Context) (*Score, error)
}

// Service computes and persists the daily market stance.
type Service struct {
	store  Store
	calc   *Calculator
	logger *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		calc:   NewCalculator(),
		logger: log.WithField("module", "elivate"),
	}
}

// ComputeAndStore scores the readings known as of scoreDate and
// upserts the result. Recomputing a date overwrites it.
func (s *Service) ComputeAndStore(ctx context.Context, scoreDate time.Time) (*Score, error) {
	readings, err := s.store.LatestReadings(ctx, scoreDate)
	if err != nil {
		return nil, fmt.Errorf("load indicator readings: %w", err)
	}

	score := s.calc.Compute(scoreDate, readings)

	if err := s.store.Upsert(ctx, score); err != nil {
		return nil, fmt.Errorf("save market stance: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"score_date": scoreDate.Format("2006-01-02"),
		"indicators": len(readings),
		"total":      score.Total,
		"stance":     string(score.Stance),
	}).Info("Market stance computed")

	return score, nil
}

// Current returns the most recent stored stance.
func (s *Service) Current(ctx context.Context) (*Score, error) {
	return s.store.GetCurrent(ctx)
}
