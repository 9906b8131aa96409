// Package debounce delays a callback until a quiet period has passed.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period used when none is configured.
const DefaultDelay = 300 * time.Millisecond

// Debouncer runs only the most recently triggered function, once no
// further Trigger has happened for Delay. A zero Debouncer is not usable;
// create one with New.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64
	closed  bool
}

// New creates a Debouncer. A non-positive delay means DefaultDelay.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay}
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules fn and restarts the quiet period, replacing any
// function still waiting. It is a no-op after Close.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(gen)
	})
}

// fire runs the pending function if no Trigger, Cancel or Flush happened
// since the timer for gen was armed. Timer.Stop cannot recall a callback
// that already started, so the generation check is what drops it.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Cancel drops any pending execution.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Flush runs the pending function now, if any, on the calling goroutine.
// It reports whether a function ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.closed || d.pending == nil {
		d.mu.Unlock()
		return false
	}
	fn := d.pending
	d.cancelLocked()
	d.mu.Unlock()

	fn()
	return true
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Close cancels any pending execution and disables future triggers.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.closed = true
}

func (d *Debouncer) cancelLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}
