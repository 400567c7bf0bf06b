package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAddCronTask_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	if err := s.AddCronTask("bad", "not a cron spec", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if len(s.Tasks()) != 0 {
		t.Error("invalid task must not be registered")
	}
}

func TestAddCronTask_ReplacesByName(t *testing.T) {
	s := New(zerolog.Nop())
	noop := func(context.Context) error { return nil }

	if err := s.AddCronTask("update-check", "0 0 3 * * 1", noop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddCronTask("update-check", "0 30 4 * * 1", noop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tasks := s.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Schedule != "0 30 4 * * 1" {
		t.Errorf("Schedule = %q", tasks[0].Schedule)
	}

	s.RemoveTask("update-check")
	if len(s.Tasks()) != 0 {
		t.Error("task should be removed")
	}
}

func TestScheduler_RunsTask(t *testing.T) {
	s := New(zerolog.Nop())

	var runs atomic.Int32
	done := make(chan struct{}, 1)
	err := s.AddCronTask("tick", "* * * * * *", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("task context should carry a deadline")
		}
		if runs.Add(1) == 1 {
			done <- struct{}{}
		}
		return errors.New("task errors are logged, not fatal")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Start(context.Background())
	if !s.IsRunning() {
		t.Error("scheduler should be running")
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not run within 3s")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(stopCtx)

	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}
	if tasks := s.Tasks(); tasks[0].PrevRun.IsZero() {
		t.Error("PrevRun should be set after a run")
	}
}

func TestScheduler_StopCancelsTasks(t *testing.T) {
	s := New(zerolog.Nop())

	started := make(chan struct{})
	finished := make(chan error, 1)
	err := s.AddCronTask("slow", "* * * * * *", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
			return nil
		}
		<-ctx.Done()
		finished <- ctx.Err()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Start(context.Background())

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not start within 3s")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Stop(stopCtx)

	select {
	case err := <-finished:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("task ctx error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("running task was not cancelled")
	}
}
