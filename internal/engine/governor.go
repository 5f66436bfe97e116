package engine

import "time"

// Governor adjusts tick cadence from observed latency. The loop is
// one-directional: cadence only lengthens under pressure and is never
// shortened within a run. That asymmetry is part of the contract, not an
// oversight; restarting is how cadence resets.
type Governor struct {
	threshold time.Duration
	factor    float64
	ceiling   time.Duration
}

// NewGovernor uses the default tuning: stretch by 1.1x whenever a tick takes
// longer than 100ms, capped at 1s.
func NewGovernor() *Governor {
	return &Governor{
		threshold: 100 * time.Millisecond,
		factor:    1.1,
		ceiling:   time.Second,
	}
}

// Observe returns the interval to use after a tick that took latency.
func (g *Governor) Observe(interval, latency time.Duration) time.Duration {
	if latency <= g.threshold {
		return interval
	}
	next := time.Duration(float64(interval) * g.factor)
	if next > g.ceiling {
		next = g.ceiling
	}
	return next
}
