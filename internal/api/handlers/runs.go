package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/adivish/fundlens/internal/batch"
	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/pkg/config"
	"github.com/adivish/fundlens/pkg/logger"
	"github.com/adivish/fundlens/pkg/redis"
)

const (
	defaultRunListLimit = 10
	maxRunListLimit     = 50
)

// Runner starts scoring runs. *batch.Engine implements it.
type Runner interface {
	Run(ctx context.Context, cfg batch.RunConfig) (*contracts.RunSummary, error)
}

// RunHandler serves run summaries and triggers scoring runs.
type RunHandler struct {
	engine  Runner
	runs    contracts.RunRepository
	cfg     *config.Config
	limiter *redis.RateLimiter
	cache   *redis.Cache
	logger  *logger.Logger

	// running guards against overlapping triggered runs within this
	// process. Cross-replica pressure is held back by the rate limiter.
	running atomic.Bool
}

// NewRunHandler creates a new run handler
func NewRunHandler(
	engine Runner,
	runs contracts.RunRepository,
	cfg *config.Config,
	limiter *redis.RateLimiter,
	cache *redis.Cache,
	log *logger.Logger,
) *RunHandler {
	return &RunHandler{
		engine:  engine,
		runs:    runs,
		cfg:     cfg,
		limiter: limiter,
		cache:   cache,
		logger:  log,
	}
}

// RunListResponse is a page of recent run summaries, newest first.
type RunListResponse struct {
	Count int                     `json:"count"`
	Runs  []*contracts.RunSummary `json:"runs"`
}

// List returns recent scoring runs
// GET /api/runs?limit=N
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected a positive integer)")
			return
		}
		if n > maxRunListLimit {
			n = maxRunListLimit
		}
		limit = n
	}

	runs, err := h.runs.GetLatest(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve runs")
		return
	}

	respondJSON(w, http.StatusOK, RunListResponse{
		Count: len(runs),
		Runs:  runs,
	})
}

// GetLatest returns the most recent scoring run
// GET /api/runs/latest
func (h *RunHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.GetLatest(r.Context(), 1)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest run")
		return
	}
	if len(runs) == 0 {
		respondError(w, http.StatusNotFound, "No scoring runs recorded yet")
		return
	}

	respondJSON(w, http.StatusOK, runs[0])
}

// GetByID returns one scoring run by its id
// GET /api/runs/{id}
func (h *RunHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := h.runs.GetByID(r.Context(), runID)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// TriggerRequest represents a scoring run trigger request
type TriggerRequest struct {
	ScoreDate string  `json:"score_date"` // Optional: YYYY-MM-DD, defaults to the latest NAV date
	FundIDs   []int64 `json:"fund_ids"`   // Optional: restrict to these funds
	Workers   int     `json:"workers"`    // Optional: override the configured worker count
	Resume    bool    `json:"resume"`     // Skip funds already checkpointed for the date
}

// TriggerResponse represents a scoring run trigger response
type TriggerResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ScoreDate string `json:"score_date,omitempty"`
}

// Trigger starts a scoring run in the background
// POST /api/runs
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	runCfg := batch.RunConfig{
		FundIDs:         req.FundIDs,
		Trigger:         batch.TriggerAPI,
		Workers:         h.cfg.Scoring.Workers,
		BatchSize:       h.cfg.Scoring.BatchSize,
		WriteRatePerSec: h.cfg.Scoring.WriteRatePerSec,
		Resume:          req.Resume,
	}
	if req.Workers > 0 {
		runCfg.Workers = req.Workers
	}
	if req.ScoreDate != "" {
		date, err := parseDate(req.ScoreDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'score_date' format (expected YYYY-MM-DD)")
			return
		}
		runCfg.ScoreDate = date
	}

	allowed, _, err := h.limiter.Allow(ctx, redis.RunTriggerRateLimit)
	if err != nil {
		h.logger.WithError(err).Error("Run trigger rate limit check failed")
		respondError(w, http.StatusInternalServerError, "Rate limit check failed")
		return
	}
	if !allowed {
		respondError(w, http.StatusTooManyRequests, "Run trigger rate limit exceeded")
		return
	}

	if !h.running.CompareAndSwap(false, true) {
		respondError(w, http.StatusConflict, "A scoring run is already in flight")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"score_date": req.ScoreDate,
		"funds":      len(req.FundIDs),
		"resume":     req.Resume,
	}).Info("Scoring run triggered")

	// The run outlives the request, so it must not inherit the request
	// context.
	go func() {
		defer h.running.Store(false)

		runCtx := context.Background()
		run, err := h.engine.Run(runCtx, runCfg)
		if err != nil {
			h.logger.WithError(err).Error("Triggered scoring run failed")
			return
		}

		for _, pattern := range []string{"top:*", "score:*"} {
			if err := h.cache.DeletePattern(runCtx, pattern); err != nil {
				h.logger.WithError(err).Warn("Failed to invalidate score cache")
			}
		}

		h.logger.WithFields(map[string]interface{}{
			"run_id": run.RunID,
			"status": run.Status,
		}).Info("Triggered scoring run finished")
	}()

	respondJSON(w, http.StatusAccepted, TriggerResponse{
		Status:    "accepted",
		Message:   "Scoring run started",
		ScoreDate: req.ScoreDate,
	})
}
