package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/oplego/lexharvest/internal/pipeline"
	"github.com/oplego/lexharvest/internal/scheduler"
)

const updateCheckTask = "update-check"

var scheduleRunNow bool

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the update-check on a cron schedule",
	Long: `Schedule starts a long-running daemon that applies migrations, then runs
the update-check for every jurisdiction on schedule.update_check_cron
(default: Mondays at 03:00). The cron expression has a seconds field.

The daemon serves operational endpoints on schedule.metrics_addr:
  /metrics   Prometheus metrics
  /healthz   store connectivity
  /tasks     scheduled tasks with their next run

Example:
  lexharvest schedule
  lexharvest schedule --run-now`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "run one update-check immediately after start")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Migrate(ctx); err != nil {
		return err
	}

	opts, err := a.pipelineOptions()
	if err != nil {
		return err
	}
	checker := pipeline.NewUpdateChecker(opts)

	check := func(ctx context.Context) error {
		results, err := checker.CheckAll(ctx)
		for _, r := range results {
			a.log.Info().
				Str("jurisdiction", string(r.Jurisdiction)).
				Str("status", string(r.Status)).
				Int("updated", r.ActsUpdated).
				Int("errors", len(r.Errors)).
				Msg("scheduled update-check finished")
		}
		return err
	}

	sched := scheduler.New(a.log)
	if err := sched.AddCronTask(updateCheckTask, a.cfg.Schedule.UpdateCheckCron, check); err != nil {
		return err
	}
	sched.Start(ctx)

	srv := &http.Server{
		Addr:              a.cfg.Schedule.MetricsAddr,
		Handler:           opsRouter(a.metrics.Handler(), a.store, sched),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stderr := cmd.ErrOrStderr()
	printBanner(stderr, "lexharvest Scheduler")
	fmt.Fprintf(stderr, "  Update-check: %s\n", a.cfg.Schedule.UpdateCheckCron)
	for _, t := range sched.Tasks() {
		fmt.Fprintf(stderr, "  Next run:     %s\n", t.NextRun.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(stderr, "  Ops endpoint: %s\n\n", a.cfg.Schedule.MetricsAddr)

	var initial sync.WaitGroup
	if scheduleRunNow {
		initial.Add(1)
		go func() {
			defer initial.Done()
			if err := check(ctx); err != nil {
				a.log.Error().Err(err).Msg("initial update-check")
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down scheduler")
	case err = <-serveErr:
		a.log.Error().Err(err).Msg("ops server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		a.log.Warn().Err(serr).Msg("ops server shutdown")
	}
	sched.Stop(shutdownCtx)
	stop()
	initial.Wait()

	if err != nil {
		return fmt.Errorf("ops server: %w", err)
	}
	return nil
}
