package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool_MinimumOneWorker(t *testing.T) {
	for _, n := range []int{0, -3} {
		if p := NewPool(n); p.workers != 1 {
			t.Errorf("NewPool(%d): expected 1 worker, got %d", n, p.workers)
		}
	}
}

func TestPool_RunsEveryTask(t *testing.T) {
	pool := NewPool(3)
	pool.Start()

	var executed int32
	const count = 20
	for i := 0; i < count; i++ {
		pool.Submit(func(ctx context.Context) error {
			atomic.AddInt32(&executed, 1)
			return nil
		})
	}

	results := pool.Wait()
	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if got := atomic.LoadInt32(&executed); got != count {
		t.Errorf("expected %d executions, got %d", count, got)
	}
}

func TestPool_BatchLargerThanBuffers(t *testing.T) {
	// The reconciler submits a whole backlog before collecting results, so
	// submission must never stall on a batch exceeding the queue capacity.
	const workers, count = 4, 100
	pool := NewPool(workers)
	pool.Start()

	var executed int32
	done := make(chan []error, 1)
	go func() {
		for i := 0; i < count; i++ {
			pool.Submit(func(ctx context.Context) error {
				atomic.AddInt32(&executed, 1)
				return nil
			})
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != count {
			t.Errorf("expected %d results, got %d", count, len(results))
		}
		if got := atomic.LoadInt32(&executed); got != count {
			t.Errorf("expected %d executions, got %d", count, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool stalled submitting a batch larger than its buffers")
	}
}

func TestPool_CollectsErrors(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	boom := errors.New("boom")
	pool.Submit(func(ctx context.Context) error { return boom })
	pool.Submit(func(ctx context.Context) error { return nil })

	failures := 0
	for _, err := range pool.Wait() {
		if err != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 4
	pool := NewPool(workers)
	pool.Start()

	var current, peak int32
	var mu sync.Mutex
	for i := 0; i < 40; i++ {
		pool.Submit(func(ctx context.Context) error {
			c := atomic.AddInt32(&current, 1)
			mu.Lock()
			if c > peak {
				peak = c
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		})
	}
	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	if peak > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", peak, workers)
	}
}

func TestPool_SubmitAfterShutdownDoesNotBlock(t *testing.T) {
	pool := NewPool(1)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		pool.Submit(func(ctx context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked after Shutdown")
	}
}
