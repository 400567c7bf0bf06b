package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockResult implements Result
type mockResult struct {
	err error
}

func (r *mockResult) GetError() error {
	return r.err
}

// mockJob implements Job
type mockJob struct {
	duration  time.Duration
	shouldErr bool
	executed  *int32 // atomic counter
}

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &mockResult{err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &mockResult{err: errors.New("job error")}
	}
	return &mockResult{err: nil}
}

func TestNewPool(t *testing.T) {
	ctx := context.Background()

	p1 := NewPool(ctx, 5)
	if p1.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p1.workers)
	}

	p2 := NewPool(ctx, 0)
	if p2.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p2.workers)
	}

	p3 := NewPool(ctx, -1)
	if p3.workers != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p3.workers)
	}
}

func TestPool_Execution(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var executed int32
	count := 10

	// More jobs than the buffered channels hold; the collector must keep up.
	for i := 0; i < count; i++ {
		if !pool.Submit(&mockJob{executed: &executed}) {
			t.Fatalf("submit %d rejected", i)
		}
	}

	results := pool.Wait()

	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}

	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}
}

func TestPool_Errors(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()

	for i := 0; i < 6; i++ {
		pool.Submit(&mockJob{shouldErr: i%2 == 0})
	}

	results := pool.Wait()

	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		}
	}

	if failed != 3 {
		t.Errorf("expected 3 failed jobs, got %d", failed)
	}
}

func TestPool_Concurrency(t *testing.T) {
	pool := NewPool(context.Background(), 4)
	pool.Start()

	start := time.Now()
	for i := 0; i < 4; i++ {
		pool.Submit(&mockJob{duration: 100 * time.Millisecond})
	}
	pool.Wait()

	// Four workers running in parallel should take ~100ms, not ~400ms.
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("jobs did not run concurrently, took %v", elapsed)
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()
	pool.Shutdown()

	for i := 0; i < 10; i++ {
		if pool.Submit(&mockJob{}) {
			t.Fatal("expected submit to be rejected after shutdown")
		}
	}
}

func TestPool_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 2)
	pool.Start()

	pool.Submit(&mockJob{duration: 5 * time.Second})
	pool.Submit(&mockJob{duration: 5 * time.Second})

	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan []Result, 1)
	go func() { done <- pool.Wait() }()

	select {
	case results := <-done:
		for _, r := range results {
			if !errors.Is(r.GetError(), context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", r.GetError())
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after parent cancellation")
	}
}

func TestPool_WaitWithoutJobs(t *testing.T) {
	pool := NewPool(context.Background(), 3)
	pool.Start()

	results := pool.Wait()
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestResultCollector(t *testing.T) {
	c := NewResultCollector()
	c.Add(&mockResult{})
	c.Add(&mockResult{err: errors.New("x")})

	results := c.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Results returns a copy
	results[0] = nil
	if c.Results()[0] == nil {
		t.Error("collector state was mutated through returned slice")
	}
}
