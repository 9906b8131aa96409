// Package search holds the debounced search-term state of a dashboard view.
package search

import (
	"sync"
	"time"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/debounce"
)

// State is a snapshot of a Controller.
type State struct {
	// Raw is the term as last typed.
	Raw string `json:"searchTerm"`
	// Applied is the term the filtered tree currently reflects.
	Applied string `json:"appliedSearchTerm"`
	// Searching is true while Raw has not been applied yet.
	Searching bool `json:"isSearching"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithDelay sets the quiet period before a typed term is applied.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.delay = d
	}
}

// WithOnApply sets the callback invoked with each applied term. It runs
// outside the controller's lock, on the timer goroutine or on the caller
// of Flush.
func WithOnApply(fn func(term string)) Option {
	return func(c *Controller) {
		c.onApply = fn
	}
}

// Controller turns a stream of keystrokes into applied search terms: each
// Type re-arms the quiet period, and only the last term typed before a
// quiet period is applied.
type Controller struct {
	delay   time.Duration
	onApply func(string)

	debouncer *debounce.Debouncer

	mu     sync.Mutex
	state  State
	seq    uint64
	closed bool
}

// New creates a Controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		delay:   debounce.DefaultDelay,
		onApply: func(string) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.debouncer = debounce.New(c.delay)
	return c
}

// Delay returns the quiet period.
func (c *Controller) Delay() time.Duration {
	return c.debouncer.Delay()
}

// Type records term as the raw search term and schedules it to be applied.
func (c *Controller) Type(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.state.Raw = term
	c.state.Searching = true
	c.seq++
	seq := c.seq
	c.debouncer.Trigger(func() {
		c.apply(seq)
	})
}

// Flush applies a pending term immediately. It reports whether a term
// was pending.
func (c *Controller) Flush() bool {
	return c.debouncer.Flush()
}

// Clear drops any pending term and resets both terms to empty.
func (c *Controller) Clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.debouncer.Cancel()
	c.seq++
	changed := c.state.Applied != ""
	c.state = State{}
	c.mu.Unlock()

	if changed {
		c.onApply("")
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close cancels any pending term. Terms typed after Close are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.debouncer.Close()
}

func (c *Controller) apply(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.seq {
		c.mu.Unlock()
		return
	}
	term := c.state.Raw
	c.state.Applied = term
	c.state.Searching = false
	c.mu.Unlock()

	c.onApply(term)
}
