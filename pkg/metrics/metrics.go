package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the scoring backend.
// It owns a dedicated prometheus.Registry so tests can create as many
// instances as they like without collector collisions.
type Registry struct {
	reg *prometheus.Registry

	// Batch metrics
	FundsProcessed *prometheus.CounterVec
	PhaseDuration  *prometheus.HistogramVec
	RunsTotal      *prometheus.CounterVec
	RankedGroups   prometheus.Gauge
	SkippedGroups  prometheus.Gauge
	ActiveRuns     prometheus.Gauge

	// API metrics
	HTTPDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New creates a metrics registry with all scoring backend metrics.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		FundsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundlens_funds_processed_total",
				Help: "Funds handled by the score phase, by outcome",
			},
			[]string{"outcome"}, // scored, excluded, failed
		),

		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundlens_phase_duration_seconds",
				Help:    "Duration of each batch phase in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"phase"}, // score, rank
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundlens_runs_total",
				Help: "Scoring runs by trigger and final status",
			},
			[]string{"trigger", "status"},
		),

		RankedGroups: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundlens_ranked_groups",
				Help: "Subcategory groups ranked in the latest run",
			},
		),

		SkippedGroups: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundlens_skipped_groups",
				Help: "Subcategory groups below the minimum peer count in the latest run",
			},
		),

		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundlens_active_runs",
				Help: "Scoring runs currently in flight",
			},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundlens_http_request_duration_seconds",
				Help:    "HTTP request duration by route and status",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route", "method", "status"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundlens_cache_hits_total",
				Help: "Cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundlens_cache_misses_total",
				Help: "Cache misses by cache type",
			},
			[]string{"cache_type"},
		),
	}

	r.reg.MustRegister(
		r.FundsProcessed,
		r.PhaseDuration,
		r.RunsTotal,
		r.RankedGroups,
		r.SkippedGroups,
		r.ActiveRuns,
		r.HTTPDuration,
		r.CacheHits,
		r.CacheMisses,
	)

	return r
}

// Handler returns the HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// PhaseTimer tracks execution time for a batch phase.
type PhaseTimer struct {
	registry *Registry
	phase    string
	start    time.Time
}

// StartPhase begins timing a batch phase.
func (r *Registry) StartPhase(phase string) *PhaseTimer {
	return &PhaseTimer{
		registry: r,
		phase:    phase,
		start:    time.Now(),
	}
}

// Stop records the phase duration.
func (pt *PhaseTimer) Stop() {
	pt.registry.PhaseDuration.WithLabelValues(pt.phase).Observe(time.Since(pt.start).Seconds())
}

// RecordOutcome counts one fund's score-phase outcome.
func (r *Registry) RecordOutcome(outcome string) {
	r.FundsProcessed.WithLabelValues(outcome).Inc()
}

// RecordRun counts a completed run.
func (r *Registry) RecordRun(trigger, status string) {
	r.RunsTotal.WithLabelValues(trigger, status).Inc()
}

// RecordCacheHit records a cache hit for the given cache type.
func (r *Registry) RecordCacheHit(cacheType string) {
	r.CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss for the given cache type.
func (r *Registry) RecordCacheMiss(cacheType string) {
	r.CacheMisses.WithLabelValues(cacheType).Inc()
}
