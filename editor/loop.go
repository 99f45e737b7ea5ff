package editor

import (
	"context"
	"sync"
)

// Loop is the mutation thread. Timers, watchers and workers never touch a
// document directly; they Post closures that Run (or Drain) executes in
// order.
type Loop struct {
	// Idle runs after every batch Run executes, e.g. to redraw.
	Idle func()

	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
}

func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn. It never blocks and is safe from any goroutine. Tasks
// posted after the loop stopped are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain runs every queued task, including tasks queued by the tasks it
// runs, and returns how many ran.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.tasks
		l.tasks = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Run executes tasks as they arrive until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.closed = true
		l.tasks = nil
		l.mu.Unlock()
	}()
	for {
		if l.Drain() > 0 && l.Idle != nil {
			l.Idle()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Pending reports how many tasks wait.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}
