// Package slthread provides the worker-thread and per-thread-scratch
// primitives: Worker, a dedicated OS-thread-locked goroutine that runs the
// functions handed to it, and Context, a generic store keyed by thread id.
// Within this module only chi's VRAMAccounting uses Context (for its
// per-thread segment stacks); nothing outside this package uses Worker,
// and the interposer's and CHI backends' binding state is not kept here.
package slthread

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Worker is a dedicated OS thread that serializes every function handed to it.
type Worker struct {
	funcs   chan func()
	done    chan struct{}
	running atomic.Bool
}

// NewWorker creates and starts a worker locked to its own OS thread.
func NewWorker() *Worker {
	w := &Worker{
		funcs: make(chan func(), 16),
		done:  make(chan struct{}),
	}
	w.running.Store(true)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		wg.Done()

		for {
			select {
			case f := <-w.funcs:
				f()
			case <-w.done:
				return
			}
		}
	}()
	wg.Wait()
	return w
}

// Call runs f on the worker thread and blocks for its result.
func (w *Worker) Call(f func() any) any {
	if !w.running.Load() {
		return nil
	}
	done := make(chan any, 1)
	w.funcs <- func() { done <- f() }
	return <-done
}

// CallVoid runs f on the worker thread and blocks until it returns.
func (w *Worker) CallVoid(f func()) {
	if !w.running.Load() {
		return
	}
	done := make(chan struct{})
	w.funcs <- func() { f(); close(done) }
	<-done
}

// CallAsync queues f to run on the worker thread without waiting. If the
// queue is full, it runs synchronously instead of deadlocking the caller.
func (w *Worker) CallAsync(f func()) {
	if !w.running.Load() {
		return
	}
	select {
	case w.funcs <- f:
	default:
		w.CallVoid(f)
	}
}

// Stop terminates the worker. Safe to call more than once.
func (w *Worker) Stop() {
	if w.running.Swap(false) {
		close(w.done)
	}
}

// IsRunning reports whether the worker is still accepting work.
func (w *Worker) IsRunning() bool {
	return w.running.Load()
}
