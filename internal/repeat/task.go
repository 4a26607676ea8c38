// Package repeat runs a function on a fixed interval until it is cancelled.
package repeat

import (
	"context"
	"sync"
	"time"
)

// Func is invoked once per tick. Returning false ends the task.
type Func func(ctx context.Context) bool

// TickSource produces the tick channel for an interval and a function that
// releases it.
type TickSource func(interval time.Duration) (<-chan time.Time, func())

// Option customises a Task.
type Option func(*Task)

// WithTickSource replaces the wall-clock ticker, mainly for tests.
func WithTickSource(src TickSource) Option {
	return func(t *Task) {
		if src != nil {
			t.ticks = src
		}
	}
}

func wallClock(interval time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

// Task is a handle to a running repeating function. Invocations never
// overlap: a tick that arrives while fn is still running is dropped.
type Task struct {
	ticks  TickSource
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	runs      int
}

// Start launches fn on its own goroutine, first invoking it one interval
// after the call.
func Start(ctx context.Context, interval time.Duration, fn Func, opts ...Option) *Task {
	t := &Task{ticks: wallClock, done: make(chan struct{})}
	for _, opt := range opts {
		opt(t)
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	tick, release := t.ticks(interval)
	go t.loop(tick, release, fn)
	return t
}

func (t *Task) loop(tick <-chan time.Time, release func(), fn Func) {
	defer close(t.done)
	defer release()
	for {
		select {
		case <-t.ctx.Done():
			t.markCancelled()
			return
		case <-tick:
			if !t.begin() {
				return
			}
			if !fn(t.ctx) {
				t.markCancelled()
				t.cancel()
				return
			}
		}
	}
}

// begin reserves an invocation unless the task was cancelled in the meantime.
func (t *Task) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.ctx.Err() != nil {
		t.cancelled = true
		return false
	}
	t.runs++
	return true
}

func (t *Task) markCancelled() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

// Cancel stops the task without waiting for it. Once Cancel returns no new
// invocation starts; an invocation already running sees its context cancelled.
// Cancel is safe to call from inside fn and more than once.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.markCancelled()
	t.cancel()
}

// Stop cancels the task and waits for its goroutine to exit. It must not be
// called from inside fn.
func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.Cancel()
	<-t.done
}

// Done is closed once the task goroutine has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancelled reports whether the task has been cancelled or has finished.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Runs returns how many times fn has been started.
func (t *Task) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}
