package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/ranking"
	"github.com/adivish/fundlens/internal/scoring"
	"github.com/adivish/fundlens/pkg/logger"
	"github.com/adivish/fundlens/pkg/metrics"
)

// Trigger values recorded on run summaries.
const (
	TriggerCLI  = "cli"
	TriggerAPI  = "api"
	TriggerCron = "cron"
)

const (
	outcomeScored   = "scored"
	outcomeExcluded = "excluded"
	outcomeFailed   = "failed"

	defaultWorkers   = 8
	defaultBatchSize = 500

	// Concurrent group writers during the rank phase. Each subcategory
	// is still written by exactly one writer in one transaction.
	rankWriters = 4
)

// Engine drives a scoring run: score every fund in parallel, wait for
// all of them, then rank subcategory groups over the persisted rows.
// The barrier between the two phases is absolute; ranking never sees a
// half-written date.
type Engine struct {
	funds       contracts.FundRepository
	navs        contracts.NavRepository
	scores      contracts.ScoreRepository
	checkpoints contracts.CheckpointRepository
	runs        contracts.RunRepository

	scorer *scoring.Scorer
	ranker *ranking.Ranker

	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewEngine creates a batch engine over the given stores.
func NewEngine(
	funds contracts.FundRepository,
	navs contracts.NavRepository,
	scores contracts.ScoreRepository,
	checkpoints contracts.CheckpointRepository,
	runs contracts.RunRepository,
	scorer *scoring.Scorer,
	ranker *ranking.Ranker,
	m *metrics.Registry,
	log *logger.Logger,
) *Engine {
	return &Engine{
		funds:       funds,
		navs:        navs,
		scores:      scores,
		checkpoints: checkpoints,
		runs:        runs,
		scorer:      scorer,
		ranker:      ranker,
		metrics:     m,
		logger:      log.WithField("module", "batch"),
	}
}

// RunConfig holds per-run parameters.
type RunConfig struct {
	// ScoreDate is the date the scores are computed for. Zero means the
	// latest scorable NAV date.
	ScoreDate time.Time

	// FundIDs restricts the run to these funds. Empty means all.
	FundIDs []int64

	// Trigger is recorded on the run summary: cli, api or cron.
	Trigger string

	Workers   int
	BatchSize int // progress is logged every BatchSize funds

	// WriteRatePerSec throttles score upserts; 0 disables the throttle.
	WriteRatePerSec int

	// Resume skips funds already checkpointed for ScoreDate. A fresh
	// run clears the date's checkpoints first.
	Resume bool
}

func (c *RunConfig) normalize() {
	if c.Workers < 1 {
		c.Workers = defaultWorkers
	}
	if c.BatchSize < 1 {
		c.BatchSize = defaultBatchSize
	}
	if c.WriteRatePerSec < 0 {
		c.WriteRatePerSec = 0
	}
	if c.Trigger == "" {
		c.Trigger = TriggerCLI
	}
}

// Run executes a full scoring run and returns its summary. The summary
// is persisted at start (status running) and finalized at the end, so
// an operator can always see what a run did, including failed ones.
//
// Per-fund calculation problems are counted and never abort the run.
// Storage write failures do: scores already committed stay committed,
// and the returned error reports how far the run got.
func (e *Engine) Run(ctx context.Context, cfg RunConfig) (*contracts.RunSummary, error) {
	cfg.normalize()

	if cfg.ScoreDate.IsZero() {
		latest, err := e.navs.LatestDate(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve score date: %w", err)
		}
		cfg.ScoreDate = latest
	}

	run := &contracts.RunSummary{
		RunID:         uuid.NewString(),
		ScoreDate:     cfg.ScoreDate,
		Trigger:       cfg.Trigger,
		Status:        contracts.RunRunning,
		PolicyVersion: e.scorer.Policy().Meta.Version,
		PolicyHash:    e.scorer.PolicyHash(),
		StartedAt:     time.Now().UTC(),
	}
	if err := e.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run record: %w", err)
	}

	e.metrics.ActiveRuns.Inc()
	defer e.metrics.ActiveRuns.Dec()

	e.logger.WithFields(map[string]interface{}{
		"run_id":     run.RunID,
		"score_date": cfg.ScoreDate.Format("2006-01-02"),
		"trigger":    cfg.Trigger,
		"resume":     cfg.Resume,
		"workers":    cfg.Workers,
	}).Info("Starting scoring run")

	runErr := e.scorePhase(ctx, cfg, run)
	if runErr == nil {
		var ranked, skipped int
		ranked, skipped, runErr = e.Rank(ctx, cfg.ScoreDate)
		run.GroupsRanked = ranked
		run.GroupsSkipped = skipped
	}

	finErr := e.finishRun(ctx, run, runErr)
	if runErr != nil {
		return run, runErr
	}
	if finErr != nil {
		return run, fmt.Errorf("finalize run %s: %w", run.RunID, finErr)
	}

	return run, nil
}

// runState is the read-only context shared by score workers.
type runState struct {
	runID           string
	scoreDate       time.Time
	minObservations int
	navCounts       map[int64]int
	limiter         *rate.Limiter
}

// fundResult is one worker's outcome for one fund.
type fundResult struct {
	fundID  int64
	outcome string
	err     error
	// fatal marks a storage write failure; the run aborts on the first
	// one. Calculation and read failures stay per-fund.
	fatal bool
}

// scorePhase scores every candidate fund through a worker pool and
// updates the run counters as results stream in. It returns only after
// all workers have exited, which is the barrier the rank phase needs.
func (e *Engine) scorePhase(ctx context.Context, cfg RunConfig, run *contracts.RunSummary) error {
	timer := e.metrics.StartPhase("score")
	defer timer.Stop()

	funds, err := e.loadFunds(ctx, cfg.FundIDs)
	if err != nil {
		return err
	}

	counts, err := e.navs.CountByFund(ctx)
	if err != nil {
		return fmt.Errorf("load nav counts: %w", err)
	}

	candidates := funds
	resumed := 0
	if cfg.Resume {
		done, err := e.checkpoints.Completed(ctx, cfg.ScoreDate)
		if err != nil {
			return fmt.Errorf("load checkpoints: %w", err)
		}
		if len(done) > 0 {
			kept := make([]*contracts.Fund, 0, len(funds))
			for _, f := range funds {
				if done[f.ID] {
					resumed++
					continue
				}
				kept = append(kept, f)
			}
			candidates = kept
		}
	} else {
		if err := e.checkpoints.Clear(ctx, cfg.ScoreDate); err != nil {
			return fmt.Errorf("clear checkpoints: %w", err)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"run_id":     run.RunID,
		"score_date": cfg.ScoreDate.Format("2006-01-02"),
		"funds":      len(candidates),
		"resumed":    resumed,
		"workers":    cfg.Workers,
	}).Info("Starting score phase")

	if len(candidates) == 0 {
		return nil
	}

	var limiter *rate.Limiter
	if cfg.WriteRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WriteRatePerSec), cfg.Workers)
	}

	state := &runState{
		runID:           run.RunID,
		scoreDate:       cfg.ScoreDate,
		minObservations: e.scorer.Policy().Returns.MinObservations,
		navCounts:       counts,
		limiter:         limiter,
	}

	// The pool context lets the collector stop workers after a fatal
	// storage failure without cancelling the caller's context.
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fundCh := make(chan *contracts.Fund, len(candidates))
	resultCh := make(chan fundResult, len(candidates))

	var wg sync.WaitGroup
	workers := cfg.Workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.scoreWorker(poolCtx, workerID, state, fundCh, resultCh)
		}(i)
	}

	for _, f := range candidates {
		fundCh <- f
	}
	close(fundCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var fatal error
	for res := range resultCh {
		run.FundsProcessed++
		switch res.outcome {
		case outcomeScored:
			run.FundsScored++
		case outcomeExcluded:
			run.FundsExcluded++
		case outcomeFailed:
			run.FundsFailed++
		}
		e.metrics.RecordOutcome(res.outcome)

		if res.fatal && fatal == nil {
			fatal = res.err
			cancel()
		}

		if run.FundsProcessed%cfg.BatchSize == 0 {
			e.logger.WithFields(map[string]interface{}{
				"processed": run.FundsProcessed,
				"scored":    run.FundsScored,
				"excluded":  run.FundsExcluded,
				"failed":    run.FundsFailed,
			}).Info("Score phase progress")
		}
	}

	if fatal != nil {
		return fmt.Errorf("score phase aborted after %d funds scored: %w", run.FundsScored, fatal)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("score phase interrupted after %d funds scored: %w", run.FundsScored, err)
	}

	e.logger.WithFields(map[string]interface{}{
		"scored":   run.FundsScored,
		"excluded": run.FundsExcluded,
		"failed":   run.FundsFailed,
		"resumed":  resumed,
	}).Info("Score phase completed")

	return nil
}

func (e *Engine) loadFunds(ctx context.Context, ids []int64) ([]*contracts.Fund, error) {
	if len(ids) > 0 {
		funds, err := e.funds.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load funds by id: %w", err)
		}
		return funds, nil
	}
	funds, err := e.funds.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load funds: %w", err)
	}
	return funds, nil
}

// scoreWorker processes funds until the channel closes or the pool
// context is cancelled.
func (e *Engine) scoreWorker(ctx context.Context, workerID int, state *runState, fundCh <-chan *contracts.Fund, resultCh chan<- fundResult) {
	for fund := range fundCh {
		select {
		case <-ctx.Done():
			resultCh <- fundResult{fundID: fund.ID, outcome: outcomeFailed, err: ctx.Err()}
			return
		default:
		}

		resultCh <- e.scoreFund(ctx, workerID, state, fund)
	}
}

// scoreFund scores one fund and persists the record plus its
// checkpoint.
func (e *Engine) scoreFund(ctx context.Context, workerID int, state *runState, fund *contracts.Fund) fundResult {
	if n := state.navCounts[fund.ID]; n < state.minObservations {
		e.logger.WithFields(map[string]interface{}{
			"worker":  workerID,
			"fund_id": fund.ID,
			"navs":    n,
		}).Debug("Fund below eligibility floor")
		return fundResult{fundID: fund.ID, outcome: outcomeExcluded}
	}

	navs, err := e.navs.GetHistory(ctx, fund.ID)
	if err != nil {
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"worker":  workerID,
			"fund_id": fund.ID,
		}).Error("Failed to load nav history")
		return fundResult{fundID: fund.ID, outcome: outcomeFailed, err: err}
	}

	rec, err := e.scorer.Score(fund, navs, state.scoreDate)
	if err != nil {
		if errors.Is(err, contracts.ErrInsufficientHistory) {
			return fundResult{fundID: fund.ID, outcome: outcomeExcluded}
		}
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"worker":  workerID,
			"fund_id": fund.ID,
		}).Error("Failed to score fund")
		return fundResult{fundID: fund.ID, outcome: outcomeFailed, err: err}
	}

	rec.RunID = state.runID

	if state.limiter != nil {
		if err := state.limiter.Wait(ctx); err != nil {
			return fundResult{fundID: fund.ID, outcome: outcomeFailed, err: err}
		}
	}

	if err := e.scores.Upsert(ctx, rec); err != nil {
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"worker":  workerID,
			"fund_id": fund.ID,
		}).Error("Failed to save score")
		return fundResult{fundID: fund.ID, outcome: outcomeFailed,
			err: fmt.Errorf("save score for fund %d: %w", fund.ID, err), fatal: true}
	}

	if err := e.checkpoints.Mark(ctx, state.scoreDate, fund.ID); err != nil {
		return fundResult{fundID: fund.ID, outcome: outcomeFailed,
			err: fmt.Errorf("checkpoint fund %d: %w", fund.ID, err), fatal: true}
	}

	e.logger.WithFields(map[string]interface{}{
		"worker":      workerID,
		"fund_id":     fund.ID,
		"total_score": rec.TotalScore,
	}).Debug("Scored and saved fund")

	return fundResult{fundID: fund.ID, outcome: outcomeScored}
}

// Rank runs the rank phase alone over a date's persisted scores. The
// full Run calls it after the score barrier; the CLI exposes it
// directly for rank-only reruns.
//
// Groups are ranked in memory first, then written concurrently, one
// transaction per subcategory. Unranked groups are written too: their
// nil rank fields and total-only recommendations must land, or a rerun
// after a policy change could leave stale quartiles behind.
func (e *Engine) Rank(ctx context.Context, scoreDate time.Time) (ranked, skipped int, err error) {
	timer := e.metrics.StartPhase("rank")
	defer timer.Stop()

	recs, err := e.scores.GetByDate(ctx, scoreDate)
	if err != nil {
		return 0, 0, fmt.Errorf("load scores for %s: %w", scoreDate.Format("2006-01-02"), err)
	}
	if len(recs) == 0 {
		e.logger.WithField("score_date", scoreDate.Format("2006-01-02")).Warn("No scores to rank")
		return 0, 0, nil
	}

	groups := e.ranker.RankAll(recs)

	groupCh := make(chan ranking.GroupResult, len(groups))
	errCh := make(chan error, len(groups))

	var wg sync.WaitGroup
	writers := rankWriters
	if writers > len(groups) {
		writers = len(groups)
	}
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := range groupCh {
				if err := e.scores.UpdateRanking(ctx, scoreDate, g.Subcategory, g.Records); err != nil {
					errCh <- fmt.Errorf("write ranking for %q: %w", g.Subcategory, err)
				}
			}
		}()
	}

	for _, g := range groups {
		if g.Ranked {
			ranked++
		} else {
			skipped++
		}
		groupCh <- g
	}
	close(groupCh)
	wg.Wait()
	close(errCh)

	var firstErr error
	failedGroups := 0
	for err := range errCh {
		failedGroups++
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return ranked, skipped, fmt.Errorf("%d of %d groups failed to write: %w", failedGroups, len(groups), firstErr)
	}

	e.metrics.RankedGroups.Set(float64(ranked))
	e.metrics.SkippedGroups.Set(float64(skipped))

	return ranked, skipped, nil
}

// finishRun stamps the terminal status onto the summary and persists
// it. Uses a detached context so a cancelled run can still record that
// it failed.
func (e *Engine) finishRun(ctx context.Context, run *contracts.RunSummary, runErr error) error {
	now := time.Now().UTC()
	run.FinishedAt = &now

	switch {
	case runErr != nil:
		run.Status = contracts.RunFailed
		run.Error = runErr.Error()
	case run.FundsExcluded > 0 || run.FundsFailed > 0:
		run.Status = contracts.RunCompletedWithSkips
	default:
		run.Status = contracts.RunCompleted
	}

	e.metrics.RecordRun(run.Trigger, string(run.Status))

	finErr := e.runs.Finish(context.WithoutCancel(ctx), run)
	if finErr != nil {
		e.logger.WithError(finErr).WithField("run_id", run.RunID).Error("Failed to finalize run record")
	}

	log := e.logger.WithFields(map[string]interface{}{
		"run_id":   run.RunID,
		"status":   string(run.Status),
		"scored":   run.FundsScored,
		"excluded": run.FundsExcluded,
		"failed":   run.FundsFailed,
		"groups":   run.GroupsRanked,
		"duration": run.Duration().String(),
	})
	if runErr != nil {
		log.WithError(runErr).Error("Scoring run failed")
	} else {
		log.Info("Scoring run completed")
	}

	return finErr
}
