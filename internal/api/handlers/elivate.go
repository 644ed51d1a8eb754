package handlers

import (
	"errors"
	"net/http"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/elivate"
	"github.com/adivish/fundlens/pkg/logger"
	"github.com/adivish/fundlens/pkg/metrics"
	"github.com/adivish/fundlens/pkg/redis"
)

// ElivateHandler serves the market stance.
type ElivateHandler struct {
	service *elivate.Service
	cache   *redis.Cache
	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewElivateHandler creates a new market stance handler
func NewElivateHandler(service *elivate.Service, cache *redis.Cache, m *metrics.Registry, log *logger.Logger) *ElivateHandler {
	return &ElivateHandler{
		service: service,
		cache:   cache,
		metrics: m,
		logger:  log,
	}
}

// GetCurrent returns the most recent market stance
// GET /api/elivate/current
func (h *ElivateHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cacheKey := redis.ElivateKey("current")

	var cached elivate.Score
	found, err := h.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		h.logger.WithError(err).Warn("Stance cache read failed")
	}
	if found {
		h.metrics.RecordCacheHit("elivate")
		respondJSON(w, http.StatusOK, &cached)
		return
	}
	h.metrics.RecordCacheMiss("elivate")

	score, err := h.service.Current(ctx)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No market stance computed yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get market stance")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve market stance")
		return
	}

	if err := h.cache.Set(ctx, cacheKey, score, redis.TTLShort); err != nil {
		h.logger.WithError(err).Warn("Stance cache write failed")
	}

	respondJSON(w, http.StatusOK, score)
}
