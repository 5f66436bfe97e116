package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsim/internal/domain"
	"marketsim/internal/event"
	"marketsim/internal/news"
)

// stepClock fires a bounded number of ticks, then parks the driver forever.
// Each fire advances time by the requested interval, so timestamps are
// strictly ordered and fully reproducible.
type stepClock struct {
	now   time.Time
	fires int
}

func newStepClock(fires int) *stepClock {
	return &stepClock{now: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), fires: fires}
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	if c.fires <= 0 {
		return nil // blocks forever; only Stop releases the driver
	}
	c.fires--
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// collectTicks drains sub until the given number of performance snapshots
// (one per tick) has been seen.
func collectTicks(t *testing.T, sub *event.Subscription, ticks int) []event.Event {
	t.Helper()
	var out []event.Event
	seen := 0
	timeout := time.After(5 * time.Second)
	for seen < ticks {
		select {
		case ev, ok := <-sub.Events():
			require.True(t, ok, "subscription closed early")
			out = append(out, ev)
			if ev.GetType() == event.TypePerf {
				seen++
			}
		case <-timeout:
			t.Fatalf("timed out after %d of %d ticks", seen, ticks)
		}
	}
	return out
}

func TestEngine_FiveTickScenario(t *testing.T) {
	eng := New(Config{
		Symbols:          []string{"AAPL"},
		TickInterval:     100 * time.Millisecond,
		Seed:             42,
		TradeProbability: 0, // quotes only
		DepthProbability: 0,
	}, WithClock(newStepClock(5)), WithLogger(quietLogger()))

	sub := eng.Subscribe(1024)
	defer sub.Close()

	require.NoError(t, eng.Start(context.Background()))
	events := collectTicks(t, sub, 5)
	eng.Stop()

	var quotes []domain.Quote
	for _, ev := range events {
		if qe, ok := ev.(*event.QuoteEvent); ok {
			quotes = append(quotes, qe.Quote)
		}
	}
	require.Len(t, quotes, 5, "one quote per tick for the single symbol")

	stamps := map[time.Time]bool{}
	for _, q := range quotes {
		assert.Equal(t, "AAPL", q.Symbol)
		stamps[q.Timestamp] = true
		assert.True(t, q.Open.Equal(quotes[0].Open), "session open must hold across ticks")
	}
	assert.Len(t, stamps, 5, "every tick gets its own timestamp")
}

func TestEngine_StartWhileRunningFails(t *testing.T) {
	eng := New(Config{Symbols: []string{"AAPL"}, Seed: 1},
		WithClock(newStepClock(0)), WithLogger(quietLogger()))
	defer eng.Stop()

	require.NoError(t, eng.Start(context.Background()))
	err := eng.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
	assert.True(t, eng.Running())
}

func TestEngine_StopTwiceIsNoop(t *testing.T) {
	eng := New(Config{Symbols: []string{"AAPL"}, Seed: 1},
		WithClock(newStepClock(2)), WithLogger(quietLogger()))

	require.NoError(t, eng.Start(context.Background()))
	eng.Stop()
	assert.False(t, eng.Running())

	eng.Stop() // second stop: no panic, state stays idle
	assert.False(t, eng.Running())

	// And the engine is restartable afterwards.
	require.NoError(t, eng.Start(context.Background()))
	eng.Stop()
}

func TestEngine_StopWithoutStartIsNoop(t *testing.T) {
	eng := New(Config{Symbols: []string{"AAPL"}, Seed: 1}, WithLogger(quietLogger()))
	eng.Stop()
	assert.False(t, eng.Running())
}

func TestEngine_DeterministicReplay(t *testing.T) {
	run := func() []byte {
		eng := New(Config{
			Symbols:          []string{"AAPL", "MSFT", "GOOGL"},
			TickInterval:     100 * time.Millisecond,
			Seed:             1234,
			EnableNews:       true,
			EnableOrderBook:  true,
			EnableTechnicals: true,
			NewsProbability:  0.2,
		}, WithClock(newStepClock(8)), WithLogger(quietLogger()))

		sub := eng.Subscribe(8192)
		defer sub.Close()

		require.NoError(t, eng.Start(context.Background()))
		events := collectTicks(t, sub, 8)
		eng.Stop()

		var buf []byte
		for _, ev := range events {
			line, err := json.Marshal(ev)
			require.NoError(t, err)
			buf = append(buf, line...)
			buf = append(buf, '\n')
		}
		return buf
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "identical seed and clock must replay byte-identically")
}

func TestEngine_SequencingAcrossTicks(t *testing.T) {
	eng := New(Config{Symbols: []string{"AAPL", "MSFT"}, Seed: 7},
		WithClock(newStepClock(4)), WithLogger(quietLogger()))

	sub := eng.Subscribe(2048)
	defer sub.Close()

	require.NoError(t, eng.Start(context.Background()))
	events := collectTicks(t, sub, 4)
	eng.Stop()

	var lastSeq uint64
	var lastTs time.Time
	for _, ev := range events {
		assert.Greater(t, ev.GetSeq(), lastSeq, "sequence numbers strictly increase")
		assert.False(t, ev.GetTs().Before(lastTs), "tick k events never trail tick k+1")
		lastSeq = ev.GetSeq()
		lastTs = ev.GetTs()
	}
}

func TestEngine_FanOutProducesAllSymbols(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "GOOGL", "AMZN"}
	eng := New(Config{Symbols: symbols, Seed: 5, FanOut: true, TradeProbability: 0, DepthProbability: 0},
		WithClock(newStepClock(3)), WithLogger(quietLogger()))

	sub := eng.Subscribe(2048)
	defer sub.Close()

	require.NoError(t, eng.Start(context.Background()))
	events := collectTicks(t, sub, 3)
	eng.Stop()

	counts := map[string]int{}
	for _, ev := range events {
		if qe, ok := ev.(*event.QuoteEvent); ok {
			counts[qe.Quote.Symbol]++
		}
	}
	for _, sym := range symbols {
		assert.Equal(t, 3, counts[sym], "symbol %s must quote every tick", sym)
	}
}

type panicProvider struct{}

func (panicProvider) Name() string { return "panic" }
func (panicProvider) Fetch(context.Context, []string, int) ([]domain.NewsItem, error) {
	panic("provider blew up")
}

func TestEngine_GenerationFailureIsContained(t *testing.T) {
	eng := New(Config{
		Symbols:         []string{"AAPL"},
		Seed:            9,
		EnableNews:      true,
		NewsProbability: 1,
	}, WithClock(newStepClock(3)), WithLogger(quietLogger()),
		WithNewsProvider(panicProvider{}))

	sub := eng.Subscribe(1024)
	defer sub.Close()

	require.NoError(t, eng.Start(context.Background()))
	events := collectTicks(t, sub, 3)
	eng.Stop()

	var quotes, errs int
	for _, ev := range events {
		switch ev.GetType() {
		case event.TypeQuote:
			quotes++
		case event.TypeError:
			errs++
		}
	}
	assert.Equal(t, 3, quotes, "quotes keep flowing despite the failing phase")
	assert.Equal(t, 3, errs, "each panic surfaces as an error event")
	assert.Equal(t, uint64(3), eng.Metrics().ErrorsTotal)
}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) Fetch(context.Context, []string, int) ([]domain.NewsItem, error) {
	return nil, fmt.Errorf("upstream unavailable")
}

func TestEngine_NewsFallsBackToTemplate(t *testing.T) {
	chain := news.NewChain(quietLogger(), failingProvider{}, news.NewTemplate(1, nil))
	eng := New(Config{
		Symbols:         []string{"AAPL"},
		Seed:            9,
		EnableNews:      true,
		NewsProbability: 1,
	}, WithClock(newStepClock(3)), WithLogger(quietLogger()),
		WithNewsProvider(chain))

	sub := eng.Subscribe(1024)
	defer sub.Close()

	require.NoError(t, eng.Start(context.Background()))
	events := collectTicks(t, sub, 3)
	eng.Stop()

	var newsCount int
	for _, ev := range events {
		if ne, ok := ev.(*event.NewsEvent); ok {
			newsCount++
			assert.Equal(t, "template", ne.Item.Source)
			assert.NotEmpty(t, ne.Item.Headline)
		}
	}
	assert.Equal(t, 3, newsCount, "news never goes silent while a fallback exists")
}

func TestEngine_DumpStateWhileRunning(t *testing.T) {
	eng := New(Config{
		Symbols:          []string{"AAPL", "MSFT"},
		Seed:             3,
		FanOut:           true,
		EnableNews:       true,
		NewsProbability:  1,
		TradeProbability: 0,
	}, WithClock(newStepClock(500)), WithLogger(quietLogger()))

	require.NoError(t, eng.Start(context.Background()))

	// Dumping against a live run must observe a consistent sequence counter.
	path := filepath.Join(t.TempDir(), "state.json")
	for i := 0; i < 50; i++ {
		require.NoError(t, eng.DumpState(path))
	}
	eng.Stop()

	final := eng.DumpState(path)
	require.NoError(t, final)
}

func TestEngine_SubscriberGaugeTracksLifetime(t *testing.T) {
	eng := New(Config{Symbols: []string{"AAPL"}, Seed: 1}, WithLogger(quietLogger()))

	a := eng.Subscribe(16)
	b := eng.Subscribe(16)
	assert.Equal(t, int32(2), eng.Metrics().Subscribers)

	a.Close()
	a.Close() // double close decrements once
	assert.Equal(t, int32(1), eng.Metrics().Subscribers)

	// Engine close tears down remaining subscriptions and their gauge slots.
	eng.Close()
	assert.Equal(t, int32(0), eng.Metrics().Subscribers)
	_, ok := <-b.Events()
	assert.False(t, ok)
}

func TestEngine_DumpState(t *testing.T) {
	eng := New(Config{Symbols: []string{"AAPL"}, Seed: 13, TradeProbability: 0},
		WithClock(newStepClock(0)), WithLogger(quietLogger()))

	_, err := eng.NextBatch(context.Background(), 3, 3, 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, eng.DumpState(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var dump struct {
		Seq    uint64                     `json:"seq"`
		State  domain.MarketState         `json:"state"`
		Quotes map[string]json.RawMessage `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(raw, &dump))
	assert.True(t, dump.State.Condition.Valid())
	assert.Contains(t, dump.Quotes, "AAPL")
}

func TestEngine_ForcedVolatileScenario(t *testing.T) {
	meanAbs := func(cond domain.MarketCondition) float64 {
		eng := New(Config{Symbols: []string{"AAPL"}, Seed: 77, TradeProbability: 0, RegimeChangeProb: 1e-12},
			WithClock(newStepClock(200)), WithLogger(quietLogger()))
		eng.Session().SetCondition(cond, time.Now())

		sub := eng.Subscribe(8192)
		defer sub.Close()

		require.NoError(t, eng.Start(context.Background()))
		events := collectTicks(t, sub, 200)
		eng.Stop()

		var sum float64
		var n int
		for _, ev := range events {
			if qe, ok := ev.(*event.QuoteEvent); ok {
				chg, _ := qe.Quote.ChangePercent.Float64()
				if chg < 0 {
					chg = -chg
				}
				sum += chg
				n++
			}
		}
		require.Positive(t, n)
		return sum / float64(n)
	}

	volatile := meanAbs(domain.ConditionVolatile)
	normal := meanAbs(domain.ConditionNormal)
	assert.Greater(t, volatile, normal,
		"volatile regime must move more on average (got %v vs %v)", volatile, normal)
}
