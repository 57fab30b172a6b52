// Package worker runs fire-and-forget tasks with bounded concurrency.
//
// Submitted tasks queue for one of a fixed number of slots. Nobody waits for their outcome:
// errors and panics are logged and dropped.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by Submit after Shutdown has started.
var ErrPoolClosed = errors.New("worker pool closed")

// Task is a unit of background work. ctx is cancelled when the pool is forced down.
type Task func(ctx context.Context) error

type Pool struct {
	sem    *semaphore.Weighted
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a pool running at most size tasks at once.
func New(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit queues task and returns its id immediately.
func (p *Pool) Submit(name string, task Task) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return "", ErrPoolClosed
	}

	id := uuid.NewString()
	logger := p.logger.With("task_id", id, "task", name)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			logger.Warn("background task dropped before start", "error", err)
			return
		}
		defer p.sem.Release(1)

		if err := run(p.ctx, task); err != nil {
			logger.Error("background task failed", "error", err)
			return
		}
		logger.Debug("background task done")
	}()
	logger.Debug("background task submitted")
	return id, nil
}

func run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(ctx)
}

// Shutdown stops accepting tasks and waits for queued and running ones. When ctx expires
// first, running tasks are cancelled, queued ones are dropped, and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
