package infra

import (
	"sync"
	"testing"
)

func TestMetricsCountersAndAverage(t *testing.T) {
	m := NewMetrics()

	m.RecordTick(100)
	m.RecordTick(300)
	m.RecordEvents(5)
	m.RecordError()
	m.RecordNewsFallback()
	m.IncrementSubscribers()
	m.IncrementSubscribers()
	m.DecrementSubscribers()

	snap := m.Snapshot()
	if snap.TicksTotal != 2 {
		t.Errorf("TicksTotal = %d, want 2", snap.TicksTotal)
	}
	if snap.EventsPublished != 5 {
		t.Errorf("EventsPublished = %d, want 5", snap.EventsPublished)
	}
	if snap.ErrorsTotal != 1 {
		t.Errorf("ErrorsTotal = %d, want 1", snap.ErrorsTotal)
	}
	if snap.NewsFallbacks != 1 {
		t.Errorf("NewsFallbacks = %d, want 1", snap.NewsFallbacks)
	}
	if snap.AvgTickNs != 200 {
		t.Errorf("AvgTickNs = %d, want 200", snap.AvgTickNs)
	}
	if snap.Subscribers != 1 {
		t.Errorf("Subscribers = %d, want 1", snap.Subscribers)
	}
	if snap.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestMetricsZeroTicksAverage(t *testing.T) {
	snap := NewMetrics().Snapshot()
	if snap.AvgTickNs != 0 {
		t.Errorf("AvgTickNs = %d, want 0 with no ticks", snap.AvgTickNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordTick(100)
	m.RecordEvents(10)
	m.IncrementSubscribers()

	m.Reset()
	snap := m.Snapshot()
	if snap.TicksTotal != 0 || snap.EventsPublished != 0 || snap.Subscribers != 0 || snap.AvgTickNs != 0 {
		t.Errorf("Reset left non-zero metrics: %+v", snap)
	}
}

func TestMetricsConcurrentAccess(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordTick(50)
				m.RecordEvents(2)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.TicksTotal != 1000 {
		t.Errorf("TicksTotal = %d, want 1000", snap.TicksTotal)
	}
	if snap.EventsPublished != 2000 {
		t.Errorf("EventsPublished = %d, want 2000", snap.EventsPublished)
	}
}
