package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// RateLimiter bounds traffic toward a single origin. At most maxConcurrent
// operations run at once, and consecutive operations start at least minDelay
// apart no matter which caller issued them. Waiting callers are admitted in
// arrival order.
type RateLimiter struct {
	slots   *semaphore.Weighted
	spacing *rate.Limiter // burst 1: one start per minDelay

	maxConcurrent int
	minDelay      time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxConcurrent int, minDelay time.Duration) *RateLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if minDelay < 0 {
		minDelay = 0
	}

	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}

	return &RateLimiter{
		slots:         semaphore.NewWeighted(int64(maxConcurrent)),
		spacing:       rate.NewLimiter(limit, 1),
		maxConcurrent: maxConcurrent,
		minDelay:      minDelay,
	}
}

// MaxConcurrent returns the number of concurrency slots
func (r *RateLimiter) MaxConcurrent() int {
	return r.maxConcurrent
}

// MinDelay returns the enforced spacing between operation starts
func (r *RateLimiter) MinDelay() time.Duration {
	return r.minDelay
}

// Do runs op once a slot is free and the spacing rule allows it. The slot is
// released when op returns, even if op fails or panics.
func (r *RateLimiter) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.slots.Release(1)

	if err := r.pace(ctx); err != nil {
		return err
	}

	return op(ctx)
}

// pace blocks until minDelay has elapsed since the previous start.
// Reservations are handed out in call order.
func (r *RateLimiter) pace(ctx context.Context) error {
	if err := r.spacing.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// WithLimit runs op under the rate limiter and returns its value
func WithLimit[T any](ctx context.Context, r *RateLimiter, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Limiters hands out one RateLimiter per origin so that every component
// talking to the same host shares a single clock.
type Limiters struct {
	limiters map[string]*RateLimiter
	mu       sync.RWMutex

	defaultConcurrent int
	defaultDelay      time.Duration
}

// NewLimiters creates a new per-origin limiter set
func NewLimiters(defaultConcurrent int, defaultDelay time.Duration) *Limiters {
	if defaultConcurrent <= 0 {
		defaultConcurrent = 1
	}

	return &Limiters{
		limiters:          make(map[string]*RateLimiter),
		defaultConcurrent: defaultConcurrent,
		defaultDelay:      defaultDelay,
	}
}

// For returns the limiter for an origin, creating it with defaults
func (l *Limiters) For(origin string) *RateLimiter {
	l.mu.RLock()
	limiter, exists := l.limiters[origin]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[origin]; exists {
		return limiter
	}

	limiter = NewRateLimiter(l.defaultConcurrent, l.defaultDelay)
	l.limiters[origin] = limiter

	return limiter
}

// Configure installs a limiter with explicit settings for an origin.
// Callers holding the previous limiter keep using it.
func (l *Limiters) Configure(origin string, maxConcurrent int, minDelay time.Duration) *RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter := NewRateLimiter(maxConcurrent, minDelay)
	l.limiters[origin] = limiter
	return limiter
}
