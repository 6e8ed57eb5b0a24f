package app

import (
	"context"
	"sync"
)

// taskQueueSize bounds pending tasks before Post blocks the producer.
const taskQueueSize = 128

// Loop executes posted tasks one at a time on a single goroutine. All
// controller state is confined to that goroutine: external setters, bridge
// completions and viewer events enter as tasks, so their effects are
// totally ordered without locks.
type Loop struct {
	tasks chan func()
	quit  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
}

// NewLoop creates a loop. Run must be called for tasks to execute.
func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), taskQueueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until the context is canceled or Close is called.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-ctx.Done():
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post schedules fn on the loop. It reports false once the loop is closed;
// the task is then dropped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

// Close stops the loop. Pending tasks are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.quit) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
