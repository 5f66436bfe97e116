package clock

import "time"

// Clock abstracts wall-clock access so the tick loop can run under a real
// timer in production and a manual clock in tests.
type Clock interface {
	Now() time.Time
	// After returns a channel that fires once after d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Real is the production clock backed by the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Manual is a deterministic clock for tests. Every After call advances the
// internal time by d and fires immediately, so a timer-driven loop runs as
// fast as the scheduler can drain it while timestamps stay strictly ordered.
// Manual is not safe for concurrent use; drive it from one goroutine.
type Manual struct {
	now time.Time
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time { return m.now }

func (m *Manual) After(d time.Duration) <-chan time.Time {
	m.now = m.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- m.now
	return ch
}

// Advance moves the clock forward without firing a timer.
func (m *Manual) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}
