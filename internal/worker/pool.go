// Package worker runs fire-and-forget tasks on a bounded queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a unit of background work. The context carries the per-task timeout.
type Task func(ctx context.Context) error

type job struct {
	name string
	task Task
}

// Pool executes tasks on a fixed number of goroutines. Submissions never
// block: when the queue is full or the pool is shutting down the task is
// dropped and counted.
type Pool struct {
	logger  *slog.Logger
	jobs    chan job
	timeout time.Duration
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Int64
	failed  atomic.Int64
}

func NewPool(logger *slog.Logger, workers, queueSize int, timeout time.Duration) *Pool {
	return &Pool{
		logger:  logger,
		jobs:    make(chan job, queueSize),
		timeout: timeout,
		workers: workers,
	}
}

// Start launches the workers. It must be called once before Dispatch.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
}

func (p *Pool) work() {
	defer p.wg.Done()

	for j := range p.jobs {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			p.failed.Add(1)
			p.logger.Error("background task panicked", slog.String("task", j.name), slog.Any("panic", rec))
		}
	}()

	if err := j.task(ctx); err != nil {
		p.failed.Add(1)
		p.logger.Warn("background task failed", slog.String("task", j.name), slog.Any("err", err))
	}
}

// Dispatch enqueues a task and reports whether it was accepted.
func (p *Pool) Dispatch(name string, task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop(name, "pool closed")
		return false
	}

	select {
	case p.jobs <- job{name: name, task: task}:
		return true
	default:
		p.drop(name, "queue full")
		return false
	}
}

func (p *Pool) drop(name, reason string) {
	p.dropped.Add(1)
	p.logger.Warn("background task dropped", slog.String("task", name), slog.String("reason", reason))
}

// Shutdown stops accepting tasks and waits for queued ones to finish or ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	const op = "worker.Pool.Shutdown"

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %d tasks still queued: %w", op, len(p.jobs), ctx.Err())
	}
}

// Dropped is the number of tasks rejected since the pool was created.
func (p *Pool) Dropped() int64 {
	return p.dropped.Load()
}

// Failed is the number of tasks that returned an error or panicked.
func (p *Pool) Failed() int64 {
	return p.failed.Load()
}
