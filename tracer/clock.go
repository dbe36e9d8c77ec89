package tracer

import "time"

// Clock abstracts the time operations the worker needs for its periodic
// wakeup and timeout computation, so tests can drive them deterministically
// instead of sleeping. Adapted from the reference clock package: production
// code injects NewRealClock; tests inject NewFakeClock and advance it
// explicitly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// After returns a channel that receives the current time once
	// duration d has elapsed. Used for Flush's deadline and the
	// retry-wait between POST attempts.
	After(d time.Duration) <-chan time.Time
	// NewTicker returns a Ticker delivering ticks on its C channel at
	// the given interval. Used for the worker's periodic drain.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer; callers read ticks from C and call Stop
// when done with it.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No more ticks are sent on C after Stop
// returns.
func (t *Ticker) Stop() { t.stopFunc() }

// realClock is a Clock backed directly by the standard library.
type realClock struct{}

// NewRealClock returns a Clock backed by the standard library's time
// package.
func NewRealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stopFunc: ticker.Stop}
}
