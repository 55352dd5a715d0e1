package services

import (
	"sync"
	"time"

	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// Debouncer runs the most recently scheduled function once the delay has
// passed without another Schedule call (trailing edge)
type Debouncer struct {
	clock ports.TimeProvider
	delay time.Duration

	mu    sync.Mutex
	timer ports.Timer
	gen   uint64
}

// NewDebouncer creates a debouncer on clock
func NewDebouncer(clock ports.TimeProvider, delay time.Duration) *Debouncer {
	return &Debouncer{clock: clock, delay: delay}
}

// Schedule (re)starts the delay; only fn from the latest call will run
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops any pending call. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Pending reports whether a call is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
