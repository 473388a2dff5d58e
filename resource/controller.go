// Package resource bounds the memory, goroutines, open runs and IO
// bandwidth used by a sort.
//
// A nil *Controller is valid and imposes no limits.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrHandleLimit is returned when more runs are requested at once than
// MaxOpenRuns allows.
var ErrHandleLimit = errors.New("open-run limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes caps the bytes reserved by in-flight chunk buffers.
	// If 0, memory is only tracked.
	MemoryLimitBytes int64

	// MaxWorkers is the number of chunks sorted or intermediate runs merged
	// concurrently. If 0, defaults to 1.
	MaxWorkers int64

	// MaxOpenRuns caps the number of run readers open at once.
	// If 0, unlimited.
	MaxOpenRuns int64

	// IOLimitBytesPerSec caps run read and write throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces a Config.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	workerSem *semaphore.Weighted

	handleSem  *semaphore.Weighted // nil if unlimited
	handleUsed atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}

	c := &Controller{
		cfg:       cfg,
		workerSem: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.MaxOpenRuns > 0 {
		c.handleSem = semaphore.NewWeighted(cfg.MaxOpenRuns)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the effective limits.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{MaxWorkers: 1}
	}
	return c.cfg
}

func clamp(n, limit int64) int64 {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// AcquireMemory reserves bytes, blocking until they are available or ctx is
// canceled. A request above the limit reserves the whole budget and returns
// the amount actually reserved, which must be passed to ReleaseMemory.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) (int64, error) {
	if c == nil || bytes <= 0 {
		return 0, nil
	}

	bytes = clamp(bytes, c.cfg.MemoryLimitBytes)
	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return 0, err
		}
	}

	c.memUsed.Add(bytes)
	return bytes, nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireWorker reserves a worker slot.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workerSem.Acquire(ctx, 1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workerSem.Release(1)
}

// AcquireHandles reserves n open-run slots at once, so concurrent merges
// never deadlock holding partial sets. It returns the reserved count, or
// ErrHandleLimit if n exceeds MaxOpenRuns.
func (c *Controller) AcquireHandles(ctx context.Context, n int) (int, error) {
	if c == nil || n <= 0 {
		return 0, nil
	}

	k := int64(n)
	if limit := c.cfg.MaxOpenRuns; limit > 0 && k > limit {
		return 0, fmt.Errorf("%w: %d > %d", ErrHandleLimit, k, limit)
	}
	if c.handleSem != nil {
		if err := c.handleSem.Acquire(ctx, k); err != nil {
			return 0, err
		}
	}
	c.handleUsed.Add(k)
	return int(k), nil
}

// ReleaseHandles releases n open-run slots.
func (c *Controller) ReleaseHandles(n int) {
	if c == nil || n <= 0 {
		return
	}
	if c.handleSem != nil {
		c.handleSem.Release(int64(n))
	}
	c.handleUsed.Add(int64(-n))
}

// OpenHandles returns the number of reserved open-run slots.
func (c *Controller) OpenHandles() int64 {
	if c == nil {
		return 0
	}
	return c.handleUsed.Load()
}

// MaxOpenRuns returns the open-run limit, or 0 if unlimited.
func (c *Controller) MaxOpenRuns() int {
	if c == nil {
		return 0
	}
	return int(c.cfg.MaxOpenRuns)
}

// AcquireIO waits until the IO limit allows n bytes. Requests larger than the
// limiter's burst are split.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}

	burst := c.ioLimiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.ioLimiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
