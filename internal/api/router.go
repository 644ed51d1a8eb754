package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/adivish/fundlens/internal/api/handlers"
	"github.com/adivish/fundlens/pkg/config"
	"github.com/adivish/fundlens/pkg/logger"
	"github.com/adivish/fundlens/pkg/metrics"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	scoreHandler *handlers.ScoreHandler,
	runHandler *handlers.RunHandler,
	elivateHandler *handlers.ElivateHandler,
	m *metrics.Registry,
	cfg *config.Config,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Prometheus scrape endpoint
	if cfg.MetricsEnabled {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Score endpoints
	api.HandleFunc("/scores/top", scoreHandler.GetTop).Methods("GET")
	api.HandleFunc("/scores/verify", scoreHandler.Verify).Methods("GET")
	api.HandleFunc("/scores/fund/{id}", scoreHandler.GetFund).Methods("GET")

	// Run endpoints. "latest" is registered before "{id}" so it wins
	// the match.
	api.HandleFunc("/runs", runHandler.List).Methods("GET")
	api.HandleFunc("/runs", runHandler.Trigger).Methods("POST")
	api.HandleFunc("/runs/latest", runHandler.GetLatest).Methods("GET")
	api.HandleFunc("/runs/{id}", runHandler.GetByID).Methods("GET")

	// Market stance endpoints
	api.HandleFunc("/elivate/current", elivateHandler.GetCurrent).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(metricsMiddleware(m))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "fundlens-api",
	})
}

// statusRecorder captures the response status code for logging and
// metrics. WriteHeader may never be called; the default is 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// metricsMiddleware records request duration per route template, so
// /api/scores/fund/42 and /api/scores/fund/7 land in the same series.
func metricsMiddleware(m *metrics.Registry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tmpl, err := cur.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			m.HTTPDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}
