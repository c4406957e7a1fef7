package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultJobTimeout = 10 * time.Minute

// Dispatcher runs handler jobs with bounded concurrency. Jobs outlive the
// update that started them: they are detached from its cancellation and
// bounded by their own timeout, and Wait drains them on shutdown.
type Dispatcher struct {
	logger  *slog.Logger
	group   errgroup.Group
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher returns a Dispatcher running at most limit jobs at a time.
// Go blocks while the limit is reached.
func NewDispatcher(logger *slog.Logger, limit int, timeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	d := &Dispatcher{logger: logger.With("component", "dispatcher"), timeout: timeout}
	if limit > 0 {
		d.group.SetLimit(limit)
	}
	return d
}

// Go schedules fn. Jobs submitted after Wait has been called are dropped.
func (d *Dispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context)) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.WarnContext(ctx, "Dispatcher closed, dropping job", "job", name)
		return
	}

	jobCtx := context.WithoutCancel(ctx)
	d.group.Go(func() error {
		jobCtx, cancel := context.WithTimeout(jobCtx, d.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				d.logger.ErrorContext(jobCtx, "Job panicked", "job", name, "panic", r)
			}
		}()

		start := time.Now()
		fn(jobCtx)
		d.logger.DebugContext(jobCtx, "Job finished", "job", name, "duration", time.Since(start))
		return nil
	})
}

// Wait stops accepting jobs and blocks until the running ones finish.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	_ = d.group.Wait()
}
