package memory

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Schedule calls into a single trailing
// invocation of fn. Only the state at fire time is written; intermediate
// states within a window are not guaranteed durable.
type Debouncer struct {
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	closed  bool
}

// NewDebouncer creates a debouncer with the given trailing window.
// A non-positive window falls back to one second.
func NewDebouncer(window time.Duration, fn func()) *Debouncer {
	if window <= 0 {
		window = time.Second
	}
	return &Debouncer{window: window, fn: fn}
}

// Schedule arms the trailing timer, replacing any pending one.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()
	d.fn()
}

// Flush runs a pending write immediately instead of waiting for the
// timer. No-op when nothing is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.closed || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fn()
}

// Pending reports whether a write is scheduled but not yet fired.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Close cancels any pending write without running it.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
