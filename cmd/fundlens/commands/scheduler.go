package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adivish/fundlens/internal/elivate"
	"github.com/adivish/fundlens/internal/scheduler"
	"github.com/adivish/fundlens/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the cron scheduler",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
- daily_scoring: weekday scoring run over the latest NAV date
- market_stance: weekday ELIVATE stance computation

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job immediately
  status  - job execution statistics

Example:
  go run ./cmd/fundlens scheduler start
  go run ./cmd/fundlens scheduler list
  go run ./cmd/fundlens scheduler run daily_scoring`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler daemon and schedules all registered jobs.

The scheduler runs until Ctrl+C.`,
		RunE: runSchedulerStart,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  runSchedulerList,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Job execution statistics",
		RunE:  runSchedulerStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FundLens Scheduler ===")

	sched, d, err := initScheduler()
	if err != nil {
		return err
	}
	defer d.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	sched, d, err := initScheduler()
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, d, err := initScheduler()
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Printf("Running job: %s\n", jobName)

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob fires the job in the background; without this wait the
	// process would exit before it finishes.
	fmt.Println("Waiting for job to complete (Ctrl+C to stop waiting)...")
	waitForJob(sched, jobName)

	return nil
}

func runSchedulerStatus(cmd *cobra.Command, args []string) error {
	sched, d, err := initScheduler()
	if err != nil {
		return err
	}
	defer d.Close()

	stats := sched.GetJobStats()

	if len(stats) == 0 {
		fmt.Println("No job history recorded")
		return nil
	}

	fmt.Println("Job statistics:")
	fmt.Println()

	for jobName, stat := range stats {
		fmt.Printf("📊 %s\n", jobName)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastSuccess != nil {
			fmt.Printf("   Last Success: %s\n", stat.LastSuccess.Format("2006-01-02 15:04:05"))
		}
		if stat.LastFailure != nil {
			fmt.Printf("   Last Failure: %s\n", stat.LastFailure.Format("2006-01-02 15:04:05"))
		}

		fmt.Println()
	}

	return nil
}

// waitForJob polls job statistics until one more run is recorded.
// RunJob executes in the background; returning without waiting would
// end the process mid-job.
func waitForJob(sched *scheduler.Scheduler, jobName string) {
	initial := 0
	if stat, ok := sched.GetJobStats()[jobName]; ok {
		initial = stat.TotalRuns
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			fmt.Println("\nStopped waiting")
			return

		case <-ticker.C:
			stat, ok := sched.GetJobStats()[jobName]
			if !ok || stat.TotalRuns == initial {
				continue
			}
			if stat.LastSuccess != nil {
				fmt.Println("✅ Job completed")
			} else {
				fmt.Println("❌ Job failed; see logs for details")
			}
			return
		}
	}
}

// initScheduler wires a scheduler with its jobs. The returned deps must
// be closed by the caller; the scheduler holds its database pool.
func initScheduler() (*scheduler.Scheduler, *deps, error) {
	d, err := initDeps()
	if err != nil {
		return nil, nil, err
	}

	stanceService := elivate.NewService(elivate.NewRepository(d.db.Pool), d.log)

	sched, err := buildScheduler(d, stanceService)
	if err != nil {
		d.Close()
		return nil, nil, err
	}

	return sched, d, nil
}

// buildScheduler registers every cron job on a fresh scheduler.
func buildScheduler(d *deps, stance *elivate.Service) (*scheduler.Scheduler, error) {
	sched := scheduler.New(d.log)

	if err := sched.AddJob(jobs.NewDailyScoringJob(d.engine, d.cfg, d.log)); err != nil {
		return nil, fmt.Errorf("register daily scoring job: %w", err)
	}
	if err := sched.AddJob(jobs.NewMarketStanceJob(stance, d.log)); err != nil {
		return nil, fmt.Errorf("register market stance job: %w", err)
	}

	return sched, nil
}
