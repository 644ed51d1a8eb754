package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorestore"
	"github.com/adivish/fundlens/pkg/logger"
	"github.com/adivish/fundlens/pkg/metrics"
	"github.com/adivish/fundlens/pkg/redis"
)

// ScoreHandler serves persisted fund scores and their integrity report.
type ScoreHandler struct {
	scores   contracts.ScoreRepository
	runs     contracts.RunRepository
	verifier *scorestore.Verifier
	cache    *redis.Cache
	limiter  *redis.RateLimiter
	metrics  *metrics.Registry
	logger   *logger.Logger
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(
	scores contracts.ScoreRepository,
	runs contracts.RunRepository,
	verifier *scorestore.Verifier,
	cache *redis.Cache,
	limiter *redis.RateLimiter,
	m *metrics.Registry,
	log *logger.Logger,
) *ScoreHandler {
	return &ScoreHandler{
		scores:   scores,
		runs:     runs,
		verifier: verifier,
		cache:    cache,
		limiter:  limiter,
		metrics:  m,
		logger:   log,
	}
}

const (
	defaultTopLimit = 20
	maxTopLimit     = 100
)

// TopScoresResponse is the leaderboard for one date.
type TopScoresResponse struct {
	ScoreDate   string                   `json:"score_date"`
	Subcategory string                   `json:"subcategory,omitempty"`
	Count       int                      `json:"count"`
	Funds       []*contracts.ScoreRecord `json:"funds"`
}

// GetTop returns the highest-scoring funds for a date
// GET /api/scores/top?date=YYYY-MM-DD&subcategory=X&limit=N
func (h *ScoreHandler) GetTop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, ok := h.scoreDateParam(w, r)
	if !ok {
		return
	}
	subcategory := r.URL.Query().Get("subcategory")

	limit := defaultTopLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected a positive integer)")
			return
		}
		if n > maxTopLimit {
			n = maxTopLimit
		}
		limit = n
	}

	dateStr := date.Format("2006-01-02")
	cacheKey := redis.TopFundsKey(dateStr, subcategory, limit)

	var cached TopScoresResponse
	found, err := h.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		h.logger.WithError(err).Warn("Leaderboard cache read failed")
	}
	if found {
		h.metrics.RecordCacheHit("top_scores")
		respondJSON(w, http.StatusOK, cached)
		return
	}
	h.metrics.RecordCacheMiss("top_scores")

	recs, err := h.scores.GetTop(ctx, date, subcategory, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get top scores")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve top scores")
		return
	}

	resp := TopScoresResponse{
		ScoreDate:   dateStr,
		Subcategory: subcategory,
		Count:       len(recs),
		Funds:       recs,
	}
	if err := h.cache.Set(ctx, cacheKey, resp, redis.TTLMedium); err != nil {
		h.logger.WithError(err).Warn("Leaderboard cache write failed")
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetFund returns one fund's score row for a date
// GET /api/scores/fund/{id}?date=YYYY-MM-DD
func (h *ScoreHandler) GetFund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fundID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid fund id")
		return
	}

	date, ok := h.scoreDateParam(w, r)
	if !ok {
		return
	}
	dateStr := date.Format("2006-01-02")
	cacheKey := redis.FundScoreKey(fundID, dateStr)

	var cached contracts.ScoreRecord
	found, err := h.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		h.logger.WithError(err).Warn("Score cache read failed")
	}
	if found {
		h.metrics.RecordCacheHit("fund_score")
		respondJSON(w, http.StatusOK, &cached)
		return
	}
	h.metrics.RecordCacheMiss("fund_score")

	rec, err := h.scores.GetByFundAndDate(ctx, fundID, date)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No score for this fund on "+dateStr)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get fund score")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve fund score")
		return
	}

	if err := h.cache.Set(ctx, cacheKey, rec, redis.TTLDaily); err != nil {
		h.logger.WithError(err).Warn("Score cache write failed")
	}

	respondJSON(w, http.StatusOK, rec)
}

// VerifyResponse is the integrity report for one score date.
type VerifyResponse struct {
	ScoreDate  string                 `json:"score_date"`
	Clean      bool                   `json:"clean"`
	Violations []scorestore.Violation `json:"violations"`
}

// Verify rechecks every persisted score row for a date
// GET /api/scores/verify?date=YYYY-MM-DD
func (h *ScoreHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	allowed, _, err := h.limiter.Allow(ctx, redis.VerifyRateLimit)
	if err != nil {
		h.logger.WithError(err).Error("Verify rate limit check failed")
		respondError(w, http.StatusInternalServerError, "Rate limit check failed")
		return
	}
	if !allowed {
		respondError(w, http.StatusTooManyRequests, "Verification rate limit exceeded")
		return
	}

	date, ok := h.scoreDateParam(w, r)
	if !ok {
		return
	}

	violations, err := h.verifier.Verify(ctx, date)
	if err != nil {
		h.logger.WithError(err).Error("Integrity verification failed")
		respondError(w, http.StatusInternalServerError, "Failed to verify scores")
		return
	}
	if violations == nil {
		violations = []scorestore.Violation{}
	}

	respondJSON(w, http.StatusOK, VerifyResponse{
		ScoreDate:  date.Format("2006-01-02"),
		Clean:      len(violations) == 0,
		Violations: violations,
	})
}

// scoreDateParam resolves the date query parameter, falling back to the
// latest run's score date. On failure it writes the error response and
// returns false.
func (h *ScoreHandler) scoreDateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
			return time.Time{}, false
		}
		return date, true
	}

	latest, err := h.runs.GetLatest(r.Context(), 1)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve latest score date")
		respondError(w, http.StatusInternalServerError, "Failed to resolve score date")
		return time.Time{}, false
	}
	if len(latest) == 0 {
		respondError(w, http.StatusNotFound, "No scoring runs recorded yet")
		return time.Time{}, false
	}
	return latest[0].ScoreDate, true
}

// Helper functions

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
