// Package work provides a bounded worker pool for CPU-bound dispatch.
//
// The shrinkage grid search and efficient-frontier generation both run many
// independent solver invocations; dispatching them here keeps a request from
// monopolizing the scheduler. A task that has started is always allowed to
// finish - cancellation only stops new tasks from being scheduled.
package work

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool executes submitted tasks on a fixed number of goroutines.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	log zerolog.Logger
}

// NewPool creates a pool with the given number of workers and starts them.
func NewPool(size int, log zerolog.Logger) *Pool {
	if size < 1 {
		size = 1
	}

	p := &Pool{
		tasks: make(chan func()),
		log:   log.With().Str("component", "work_pool").Logger(),
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}

	p.log.Debug().Int("workers", size).Msg("Worker pool started")
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit blocks until a worker accepts the task or the context is cancelled.
// Once accepted, the task runs to completion regardless of later cancellation.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	// Hold the read lock for the send itself so Close cannot close the
	// channel while a sender is parked on it.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
		return nil
	}
}

// Close stops accepting tasks and waits for in-flight tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debug().Msg("Worker pool stopped")
}
