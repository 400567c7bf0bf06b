// Package scheduler runs recurring pipeline jobs on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/logger"
)

// DefaultTaskTimeout bounds one task run. A full update-check sweep paces
// every request, so the bound is generous.
const DefaultTaskTimeout = 6 * time.Hour

// TaskFunc is the function signature for scheduled tasks
type TaskFunc func(ctx context.Context) error

// TaskInfo describes a registered task
type TaskInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	NextRun  time.Time `json:"next_run"`
	PrevRun  time.Time `json:"prev_run,omitempty"`
}

type task struct {
	id       cron.EntryID
	schedule string
}

// Scheduler manages scheduled tasks using robfig/cron. Expressions carry a
// seconds field: "second minute hour day-of-month month day-of-week".
// A task still running when its next tick arrives is skipped.
type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	tasks   map[string]task
	running bool
	base    context.Context
	cancel  context.CancelFunc
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	log = logger.Component(log, "scheduler")
	cl := cronLogger{log: log}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		timeout: DefaultTaskTimeout,
		tasks:   make(map[string]task),
		base:    context.Background(),
	}
}

// SetTaskTimeout changes the per-run bound
func (s *Scheduler) SetTaskTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// Start begins the scheduler. Task contexts derive from ctx, so cancelling
// it aborts running tasks.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.base, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.running = true
	s.log.Info().Int("tasks", len(s.tasks)).Msg("scheduler started")
}

// Stop stops scheduling and waits for running tasks until ctx expires,
// then cancels whatever is still running.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.log.Info().Msg("scheduler stopped gracefully")
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timeout, cancelling running tasks")
	}
	cancel()
}

// AddCronTask registers task under name, replacing any task with that name
func (s *Scheduler) AddCronTask(name, schedule string, fn TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[name]; ok {
		s.cron.Remove(existing.id)
		delete(s.tasks, name)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		s.runTask(name, fn)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}

	s.tasks[name] = task{id: id, schedule: schedule}
	s.log.Info().Str("name", name).Str("schedule", schedule).Msg("added cron task")
	return nil
}

// RemoveTask removes a scheduled task
func (s *Scheduler) RemoveTask(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[name]; ok {
		s.cron.Remove(existing.id)
		delete(s.tasks, name)
		s.log.Info().Str("name", name).Msg("removed task")
	}
}

func (s *Scheduler) runTask(name string, fn TaskFunc) {
	s.mu.RLock()
	base, timeout := s.base, s.timeout
	s.mu.RUnlock()

	start := time.Now()
	s.log.Info().Str("name", name).Msg("running scheduled task")

	ctx, cancel := context.WithTimeout(base, timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.log.Error().Err(err).Str("name", name).Dur("duration", time.Since(start)).Msg("scheduled task failed")
		return
	}

	s.log.Info().Str("name", name).Dur("duration", time.Since(start)).Msg("scheduled task completed")
}

// Tasks returns the registered tasks sorted by name
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := make([]TaskInfo, 0, len(s.tasks))
	for name, t := range s.tasks {
		entry := s.cron.Entry(t.id)
		info = append(info, TaskInfo{
			Name:     name,
			Schedule: t.schedule,
			NextRun:  entry.Next,
			PrevRun:  entry.Prev,
		})
	}
	sort.Slice(info, func(i, j int) bool { return info[i].Name < info[j].Name })
	return info
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
