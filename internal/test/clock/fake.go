// Package clock provides a manually advanced ports.TimeProvider for tests.
package clock

import (
	"sync"
	"time"

	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// Fake is a TimeProvider that only moves when Advance is called. Timer
// callbacks run synchronously on the goroutine calling Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

var _ ports.TimeProvider = (*Fake)(nil)

// NewFake returns a clock starting at start
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake time
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Since returns the fake time elapsed since t
func (c *Fake) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Sleep advances the clock by d
func (c *Fake) Sleep(d time.Duration) {
	c.Advance(d)
}

// After delivers on the returned channel once the clock passes d
func (c *Fake) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.AfterFunc(d, func() {
		ch <- c.Now()
	})
	return ch
}

// AfterFunc schedules f to run when the clock passes d
func (c *Fake) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// NewTicker returns a ticker firing every d of fake time
func (c *Fake) NewTicker(d time.Duration) ports.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTicker{clock: c, period: d, next: c.now.Add(d), c: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Pending returns the number of timers that have not fired or been stopped
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves the clock forward, firing timers and tickers in time order
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		timer, ticker, at := c.earliestLocked(target)
		if timer == nil && ticker == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = at

		if timer != nil {
			c.removeTimerLocked(timer)
			c.mu.Unlock()
			timer.fn()
			continue
		}

		ticker.next = ticker.next.Add(ticker.period)
		c.mu.Unlock()
		select {
		case ticker.c <- at:
		default:
		}
	}
}

func (c *Fake) earliestLocked(limit time.Time) (*fakeTimer, *fakeTicker, time.Time) {
	var timer *fakeTimer
	for _, t := range c.timers {
		if !t.at.After(limit) && (timer == nil || t.at.Before(timer.at)) {
			timer = t
		}
	}

	var ticker *fakeTicker
	for _, t := range c.tickers {
		if !t.next.After(limit) && (ticker == nil || t.next.Before(ticker.next)) {
			ticker = t
		}
	}

	switch {
	case timer != nil && (ticker == nil || !ticker.next.Before(timer.at)):
		return timer, nil, timer.at
	case ticker != nil:
		return nil, ticker, ticker.next
	default:
		return nil, nil, limit
	}
}

func (c *Fake) removeTimerLocked(t *fakeTimer) bool {
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock *Fake
	at    time.Time
	fn    func()
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.removeTimerLocked(t)
}

type fakeTicker struct {
	clock  *Fake
	period time.Duration
	next   time.Time
	c      chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time {
	return t.c
}

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	for i, other := range t.clock.tickers {
		if other == t {
			t.clock.tickers = append(t.clock.tickers[:i], t.clock.tickers[i+1:]...)
			return
		}
	}
}
