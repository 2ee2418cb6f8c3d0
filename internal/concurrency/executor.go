// File: internal/concurrency/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor is a fixed-size worker pool fed from an unbounded FIFO. The reactor
// keeps one per direction so a slow callback never stalls readiness detection.

package concurrency

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a fixed pool of worker goroutines.
type Executor struct {
	name  string
	mu    sync.Mutex
	cond  *sync.Cond
	tasks *queue.Queue // of TaskFunc, guarded by mu

	closed     atomic.Bool
	numWorkers int
	wg         sync.WaitGroup

	// statistics
	submitted atomic.Int64
	completed atomic.Int64
	dropped   atomic.Int64
	panics    atomic.Int64
}

// NewExecutor starts numWorkers workers. If numWorkers <= 0, defaults to runtime.NumCPU().
func NewExecutor(name string, numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{
		name:       name,
		tasks:      queue.New(),
		numWorkers: numWorkers,
	}
	e.cond = sync.NewCond(&e.mu)
	for i := 0; i < numWorkers; i++ {
		e.wg.Add(1)
		go e.work()
	}
	return e
}

// Submit enqueues a task. Returns ErrExecutorClosed once Close has been called.
// Submit never blocks on task execution.
func (e *Executor) Submit(task TaskFunc) error {
	if task == nil {
		return ErrNilTask
	}
	e.mu.Lock()
	if e.closed.Load() {
		e.mu.Unlock()
		return ErrExecutorClosed
	}
	e.tasks.Add(task)
	e.submitted.Add(1)
	e.mu.Unlock()
	e.cond.Signal()
	return nil
}

// Close stops accepting tasks and discards the ones not yet started.
// Running tasks complete normally; Close does not wait for them, use Wait.
// Safe to call from within a task.
func (e *Executor) Close() {
	e.mu.Lock()
	if !e.closed.CompareAndSwap(false, true) {
		e.mu.Unlock()
		return
	}
	for e.tasks.Length() > 0 {
		e.tasks.Remove()
		e.dropped.Add(1)
	}
	e.mu.Unlock()
	e.cond.Broadcast()
}

// Wait blocks until every worker has exited after Close.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// IsClosed reports whether Close has been called.
func (e *Executor) IsClosed() bool {
	return e.closed.Load()
}

// NumWorkers returns the fixed worker count.
func (e *Executor) NumWorkers() int {
	return e.numWorkers
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	e.mu.Lock()
	pending := int64(e.tasks.Length())
	e.mu.Unlock()
	return map[string]int64{
		"submitted_tasks": e.submitted.Load(),
		"completed_tasks": e.completed.Load(),
		"dropped_tasks":   e.dropped.Load(),
		"panicked_tasks":  e.panics.Load(),
		"pending_tasks":   pending,
		"num_workers":     int64(e.numWorkers),
	}
}

func (e *Executor) work() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		for e.tasks.Length() == 0 && !e.closed.Load() {
			e.cond.Wait()
		}
		if e.closed.Load() {
			e.mu.Unlock()
			return
		}
		task := e.tasks.Remove().(TaskFunc)
		e.mu.Unlock()
		e.safeExecute(task)
	}
}

// safeExecute runs the task, recovering from panics to keep the worker alive.
func (e *Executor) safeExecute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			log.Printf("[executor %s] task panic: %v", e.name, r)
		}
		e.completed.Add(1)
	}()
	task()
}
