package ports

import "time"

// TimeProvider abstracts time operations so debouncers, status decay and
// the alignment frame loop can be driven by a fake clock in tests
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
	// AfterFunc runs f on its own goroutine once d has elapsed
	AfterFunc(d time.Duration, f func()) Timer
}

// Ticker abstracts time.Ticker for testability
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer abstracts a pending AfterFunc
type Timer interface {
	// Stop prevents the function from firing. It returns false if the
	// timer already fired or was stopped.
	Stop() bool
}

// RealTimeProvider implements TimeProvider using standard time package
type RealTimeProvider struct{}

// NewRealTimeProvider creates a new real time provider implementation
func NewRealTimeProvider() TimeProvider {
	return &RealTimeProvider{}
}

// Now returns the current time
func (tp *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t
func (tp *RealTimeProvider) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Sleep pauses execution for the given duration
func (tp *RealTimeProvider) Sleep(d time.Duration) {
	time.Sleep(d)
}

// After returns a channel that delivers the current time after d
func (tp *RealTimeProvider) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// NewTicker creates a new ticker
func (tp *RealTimeProvider) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

// AfterFunc schedules f after d
func (tp *RealTimeProvider) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// realTicker implements Ticker using time.Ticker
type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}
