package schedule

import (
	"sync"
	"time"
)

// DebounceState is the debouncer's position in idle -> pending -> fire.
type DebounceState int

const (
	DebounceIdle DebounceState = iota
	DebouncePending
)

// Debouncer runs fn once input activity has paused for delay. Every Trigger
// while pending restarts the wait.
type Debouncer struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	fn    func()
	state DebounceState
	timer Timer
	gen   uint64
}

// NewDebouncer creates an idle debouncer. A nil clock uses the real one.
func NewDebouncer(delay time.Duration, clock Clock, fn func()) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer{clock: clock, delay: delay, fn: fn}
}

// Trigger records activity: idle -> pending, or pending -> pending with the
// timer restarted.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.state = DebouncePending
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire runs fn if gen is still the latest trigger. A timer that lost the
// race with Stop carries an old gen and does nothing.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.state != DebouncePending {
		d.mu.Unlock()
		return
	}
	d.state = DebounceIdle
	d.timer = nil
	fn := d.fn
	d.mu.Unlock()

	fn()
}

// Cancel drops a pending fire.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.state = DebounceIdle
}

// Flush fires immediately if pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.state != DebouncePending {
		d.mu.Unlock()
		return
	}
	gen := d.gen
	d.mu.Unlock()
	d.fire(gen)
}

// State returns the current state.
func (d *Debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
