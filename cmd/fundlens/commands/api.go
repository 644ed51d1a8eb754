package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adivish/fundlens/internal/api"
	"github.com/adivish/fundlens/internal/api/handlers"
	"github.com/adivish/fundlens/internal/elivate"
	"github.com/adivish/fundlens/internal/scheduler"
	"github.com/adivish/fundlens/internal/scorestore"
	"github.com/adivish/fundlens/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                - Health check
  GET  /metrics               - Prometheus metrics
  GET  /api/scores/top        - Leaderboard for a date
  GET  /api/scores/fund/{id}  - One fund's score row
  GET  /api/scores/verify     - Integrity report for a date
  GET  /api/runs              - Recent scoring runs
  GET  /api/runs/latest       - Most recent scoring run
  GET  /api/runs/{id}         - One scoring run
  POST /api/runs              - Trigger a scoring run
  GET  /api/elivate/current   - Current market stance

With SCHEDULER_ENABLED=true the server also runs the cron jobs.

Example:
  go run ./cmd/fundlens api
  go run ./cmd/fundlens api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "listen port (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FundLens API Server ===")

	// 1. Wire the scoring stack
	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	// 2. Connect to Redis (optional, no-ops when disabled)
	redisClient, err := redis.New(d.cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient, "fundlens")
	limiter := redis.NewRateLimiter(redisClient, "fundlens")

	// 3. Create services
	verifier := scorestore.NewVerifier(d.scores, d.policy, d.log)
	stanceService := elivate.NewService(elivate.NewRepository(d.db.Pool), d.log)

	// 4. Create handlers
	scoreHandler := handlers.NewScoreHandler(d.scores, d.runs, verifier, cache, limiter, d.metrics, d.log)
	runHandler := handlers.NewRunHandler(d.engine, d.runs, d.cfg, limiter, cache, d.log)
	elivateHandler := handlers.NewElivateHandler(stanceService, cache, d.metrics, d.log)

	// 5. Create router and server
	router := api.NewRouter(scoreHandler, runHandler, elivateHandler, d.metrics, d.cfg, d.log)
	server := api.New(d.cfg, d.log, router)

	// 6. Start the embedded scheduler when enabled
	var sched *scheduler.Scheduler
	if d.cfg.Scheduler.Enabled {
		sched, err = buildScheduler(d, stanceService)
		if err != nil {
			return err
		}
		sched.Start()
		fmt.Println("✅ Scheduler running")
	}

	// 7. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			d.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")

	if sched != nil {
		sched.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
