// Package worker runs batches of independent tasks over a bounded set of
// goroutines. The ledger reconciler uses it to re-attempt anchor writes
// concurrently without fanning out one goroutine per backlog entry.
package worker

import (
	"context"
	"sync"
)

// Task is one unit of work. A nil error means the task succeeded.
type Task func(ctx context.Context) error

// Pool executes submitted tasks on a fixed number of workers. Workers
// record outcomes as they finish, so the caller may submit an entire
// batch before collecting results with Wait.
type Pool struct {
	workers   int
	tasks     chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu      sync.Mutex
	results []error
}

// NewPool creates a pool with the given worker count (minimum one).
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: workers,
		tasks:   make(chan Task, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			err := task(p.ctx)
			p.mu.Lock()
			p.results = append(p.results, err)
			p.mu.Unlock()
		}
	}
}

// Submit queues a task. After Shutdown it returns without queueing.
func (p *Pool) Submit(task Task) {
	select {
	case <-p.ctx.Done():
	case p.tasks <- task:
	}
}

// Wait closes the queue, waits for the workers to drain it and returns
// one entry per executed task (nil entries for successes), in completion
// order.
func (p *Pool) Wait() []error {
	p.closeOnce.Do(func() { close(p.tasks) })
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.results
}

// Shutdown cancels running tasks and stops the workers.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
