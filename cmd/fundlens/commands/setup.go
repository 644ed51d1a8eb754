package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adivish/fundlens/internal/batch"
	"github.com/adivish/fundlens/internal/navstore"
	"github.com/adivish/fundlens/internal/ranking"
	"github.com/adivish/fundlens/internal/scorepolicy"
	"github.com/adivish/fundlens/internal/scorestore"
	"github.com/adivish/fundlens/internal/scoring"
	"github.com/adivish/fundlens/pkg/config"
	"github.com/adivish/fundlens/pkg/database"
	"github.com/adivish/fundlens/pkg/logger"
	"github.com/adivish/fundlens/pkg/metrics"
)

// deps bundles the wired scoring stack. Every command that touches the
// database goes through initDeps, so the wiring lives in one place.
type deps struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB

	funds       *navstore.FundRepository
	navs        *navstore.NavRepository
	scores      *scorestore.ScoreRepository
	checkpoints *scorestore.CheckpointRepository
	runs        *scorestore.RunRepository

	policy  *scorepolicy.Policy
	scorer  *scoring.Scorer
	ranker  *ranking.Ranker
	metrics *metrics.Registry
	engine  *batch.Engine
}

func initDeps() (*deps, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Create repositories
	funds := navstore.NewFundRepository(db.Pool)
	navs := navstore.NewNavRepository(db.Pool)
	scores := scorestore.NewScoreRepository(db.Pool)
	checkpoints := scorestore.NewCheckpointRepository(db.Pool)
	runs := scorestore.NewRunRepository(db.Pool)

	// 5. Load scoring policy
	policy, err := scorepolicy.LoadOrDefault(cfg.Scoring.PolicyPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load scoring policy: %w", err)
	}

	// 6. Create scorer and ranker
	scorer, err := scoring.NewScorer(policy, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create scorer: %w", err)
	}
	ranker := ranking.NewRanker(policy, log)

	// 7. Create metrics registry and batch engine
	m := metrics.New()
	engine := batch.NewEngine(funds, navs, scores, checkpoints, runs, scorer, ranker, m, log)

	return &deps{
		cfg:         cfg,
		log:         log,
		db:          db,
		funds:       funds,
		navs:        navs,
		scores:      scores,
		checkpoints: checkpoints,
		runs:        runs,
		policy:      policy,
		scorer:      scorer,
		ranker:      ranker,
		metrics:     m,
		engine:      engine,
	}, nil
}

// Close releases the database pool.
func (d *deps) Close() {
	d.db.Close()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// resolveDate parses a YYYY-MM-DD argument, falling back to the latest
// NAV date when it is empty.
func resolveDate(ctx context.Context, d *deps, raw string) (time.Time, error) {
	if raw != "" {
		date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", raw)
		}
		return date, nil
	}

	date, err := d.navs.LatestDate(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve latest NAV date: %w", err)
	}
	return date, nil
}
