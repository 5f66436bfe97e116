package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksTotal      atomic.Uint64
	eventsPublished atomic.Uint64
	errorsTotal     atomic.Uint64
	newsFallbacks   atomic.Uint64

	// Tick latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	subscribers atomic.Int32
}

// NewMetrics creates a zeroed metrics instance.
func NewMetrics() *Metrics { return &Metrics{} }

// RecordTick records one completed tick with its latency.
func (m *Metrics) RecordTick(latencyNs int64) {
	m.ticksTotal.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordEvents records n published events.
func (m *Metrics) RecordEvents(n uint64) {
	m.eventsPublished.Add(n)
}

// RecordError records a recovered generation error.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// RecordNewsFallback records a provider chain falling through a provider.
func (m *Metrics) RecordNewsFallback() {
	m.newsFallbacks.Add(1)
}

// IncrementSubscribers increments the subscriber gauge by 1.
func (m *Metrics) IncrementSubscribers() {
	m.subscribers.Add(1)
}

// DecrementSubscribers decrements the subscriber gauge by 1.
func (m *Metrics) DecrementSubscribers() {
	m.subscribers.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksTotal      uint64    `json:"ticks_total"`
	EventsPublished uint64    `json:"events_published"`
	ErrorsTotal     uint64    `json:"errors_total"`
	NewsFallbacks   uint64    `json:"news_fallbacks"`
	AvgTickNs       int64     `json:"avg_tick_ns"`
	Subscribers     int32     `json:"subscribers"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avg int64
	count := m.latencyCount.Load()
	if count > 0 {
		avg = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksTotal:      m.ticksTotal.Load(),
		EventsPublished: m.eventsPublished.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		NewsFallbacks:   m.newsFallbacks.Load(),
		AvgTickNs:       avg,
		Subscribers:     m.subscribers.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksTotal.Store(0)
	m.eventsPublished.Store(0)
	m.errorsTotal.Store(0)
	m.newsFallbacks.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.subscribers.Store(0)
}
