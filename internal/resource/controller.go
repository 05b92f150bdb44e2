package resource

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned by Reserve when the budget is exhausted.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds the limits of one runtime. Zero values mean unlimited, except
// Slots which defaults to GOMAXPROCS.
type Config struct {
	// MemoryLimitBytes caps the float32 bytes handed to native indexes.
	MemoryLimitBytes int64

	// Slots bounds native searches running at once through ParallelSearch.
	Slots int64

	// QueriesPerSec throttles query admission.
	QueriesPerSec int64
}

// Controller accounts vector memory and admits parallel searches for every
// handle of a runtime. A nil *Controller accepts everything.
type Controller struct {
	limit    int64
	budget   *semaphore.Weighted // nil when limit is 0
	reserved atomic.Int64

	slots    int64
	admitted *semaphore.Weighted
	throttle *rate.Limiter // nil when unthrottled
}

// NewController builds a controller for cfg.
func NewController(cfg Config) *Controller {
	slots := cfg.Slots
	if slots <= 0 {
		slots = int64(runtime.GOMAXPROCS(0))
	}
	c := &Controller{
		limit:    max(cfg.MemoryLimitBytes, 0),
		slots:    slots,
		admitted: semaphore.NewWeighted(slots),
	}
	if c.limit > 0 {
		c.budget = semaphore.NewWeighted(c.limit)
	}
	if qps := cfg.QueriesPerSec; qps > 0 {
		c.throttle = rate.NewLimiter(rate.Limit(qps), int(qps))
	}
	return c
}

// Reserve accounts n bytes, failing fast with ErrMemoryLimitExceeded.
func (c *Controller) Reserve(n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	if c.budget != nil && !c.budget.TryAcquire(n) {
		return ErrMemoryLimitExceeded
	}
	c.reserved.Add(n)
	return nil
}

// Release returns n bytes taken by Reserve.
func (c *Controller) Release(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.reserved.Add(-n)
	if c.budget != nil {
		c.budget.Release(n)
	}
}

// Reserved reports the bytes currently accounted.
func (c *Controller) Reserved() int64 {
	if c == nil {
		return 0
	}
	return c.reserved.Load()
}

// Limit reports the memory cap, 0 when unlimited.
func (c *Controller) Limit() int64 {
	if c == nil {
		return 0
	}
	return c.limit
}

// Slots reports how many searches may run at once.
func (c *Controller) Slots() int {
	if c == nil {
		return runtime.GOMAXPROCS(0)
	}
	return int(c.slots)
}

// Admit blocks until the throttle and a free slot let one query through,
// or ctx is done. Every successful Admit is paired with Done.
func (c *Controller) Admit(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			return err
		}
	}
	return c.admitted.Acquire(ctx, 1)
}

// Done frees the slot taken by Admit.
func (c *Controller) Done() {
	if c != nil {
		c.admitted.Release(1)
	}
}
