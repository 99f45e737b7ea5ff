package highlight

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet interval before a delayed pass runs.
const DefaultDelay = 500 * time.Millisecond

type stopper interface {
	Stop() bool
}

// Debouncer coalesces notifications until Delay passes without a new one,
// then runs once with the merged payload. Runs are handed to Post so they
// execute on the mutation thread; two runs never overlap.
type Debouncer[T any] struct {
	Delay time.Duration

	merge func(a, b T) T
	run   func(T)
	post  func(func())

	mu        sync.Mutex
	timer     stopper
	pending   T
	has       bool
	gen       uint64
	running   bool
	afterFunc func(time.Duration, func()) stopper
}

// NewDebouncer returns a debouncer calling run with the merge of every
// payload notified since the last run. post may be nil, in which case
// runs happen on the timer goroutine.
func NewDebouncer[T any](delay time.Duration, merge func(a, b T) T, run func(T), post func(func())) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Debouncer[T]{
		Delay: delay,
		merge: merge,
		run:   run,
		post:  post,
		afterFunc: func(d time.Duration, fn func()) stopper {
			return time.AfterFunc(d, fn)
		},
	}
}

// Notify adds v to the pending payload and restarts the quiet interval.
func (d *Debouncer[T]) Notify(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.has {
		d.pending = d.merge(d.pending, v)
	} else {
		d.pending, d.has = v, true
	}
	d.arm()
}

func (d *Debouncer[T]) arm() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.afterFunc(d.Delay, func() {
		d.post(func() { d.fire(gen) })
	})
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	stale := gen != d.gen
	d.mu.Unlock()
	if !stale {
		d.Flush()
	}
}

// Flush runs the pending payload now. Called during a run, it leaves the
// payload pending and re-arms the timer instead.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.has {
		d.mu.Unlock()
		return false
	}
	if d.running {
		d.arm()
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.pending
	var zero T
	d.pending, d.has, d.running = zero, false, true
	d.gen++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()
	d.run(v)
	return true
}

// Pending reports whether a run is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.has
}

// Stop drops the pending payload.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.pending, d.has = zero, false
	d.gen++
}
