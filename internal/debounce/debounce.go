// Package debounce collapses editor save-bursts into single
// stable-change notifications. Each watched path moves through a tiny
// state machine: the first event arms a timer, further events within
// the quiet period re-arm it, and only a full quiet period with no
// events fires the callback.
package debounce

import (
	"sync"
	"time"
)

// Callback receives the path of a file once it has been quiet for the
// full debounce window.
type Callback func(path string)

// entry is the pending state for one path: its timer and the time of
// the last event, used to detect a timer that fired concurrently with
// a reset.
type entry struct {
	timer *time.Timer
	last  time.Time
}

// Debouncer coalesces bursts of change notifications per path. One
// instance exists per monitored extension, each owning its own set of
// per-path timers.
type Debouncer struct {
	delay time.Duration
	fire  Callback

	mu      sync.Mutex
	pending map[string]*entry
	stopped bool
}

// New creates a Debouncer that fires cb once a path has seen no events
// for delay.
func New(delay time.Duration, cb Callback) *Debouncer {
	return &Debouncer{
		delay:   delay,
		fire:    cb,
		pending: make(map[string]*entry),
	}
}

// Notify records a change event for path. The first event arms the
// quiet-period timer; events arriving while pending restart it.
func (d *Debouncer) Notify(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	now := time.Now()
	if e, ok := d.pending[path]; ok {
		e.last = now
		e.timer.Reset(d.delay)
		return
	}

	d.pending[path] = &entry{
		last: now,
		timer: time.AfterFunc(d.delay, func() {
			d.expire(path)
		}),
	}
}

// expire fires the callback for path unless a newer event re-armed the
// timer while this expiry was in flight.
func (d *Debouncer) expire(path string) {
	d.mu.Lock()

	e, ok := d.pending[path]
	if !ok || d.stopped {
		d.mu.Unlock()
		return
	}

	// A concurrent Notify may have reset the timer between its firing
	// and this lock acquisition. The path is still pending then.
	if time.Since(e.last) < d.delay {
		d.mu.Unlock()
		return
	}

	delete(d.pending, path)
	cb := d.fire
	d.mu.Unlock()

	cb(path)
}

// Pending returns the number of paths with an armed timer.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels all pending timers without firing them.
// Safe to call multiple times, and with no timers pending. A timer
// mid-fire when Stop begins may still complete its callback, but it is
// never re-armed afterward.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true

	for _, e := range d.pending {
		e.timer.Stop()
	}
	d.pending = make(map[string]*entry)
}
