package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"marketsim/internal/domain"
	"marketsim/internal/event"
	"marketsim/internal/indicators"
	"marketsim/internal/infra"
	"marketsim/internal/news"

	"marketsim/pkg/clock"
)

// Rough per-entry cost used for the memory estimate in snapshots.
const quoteMemEstimate = 256

// minimum history before technicals are reported for a symbol.
const technicalsWarmup = 35

// Engine is the tick scheduler / stream driver. It fans generation out per
// symbol each tick, runs the regime check, emits a performance snapshot, and
// publishes everything through its broadcaster. State machine:
// idle -> running -> idle; Start fails while running, Stop is idempotent and
// takes effect at the next tick boundary.
type Engine struct {
	cfg      Config
	clk      clock.Clock
	log      *slog.Logger
	metrics  *infra.Metrics
	bus      *event.Broadcaster
	newsSrc  news.Provider
	session  *Session
	regime   *Regime
	learner  *Learner
	governor *Governor

	// interval is touched only by the run goroutine (and by Start before it
	// exists). seq is atomic: DumpState reads it while the run loop publishes.
	interval time.Duration
	seq      atomic.Uint64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithClock injects the clock driving ticks and timestamps.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) { e.clk = clk }
}

// WithLogger injects the process logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithNewsProvider replaces the default template-only chain.
func WithNewsProvider(p news.Provider) Option {
	return func(e *Engine) { e.newsSrc = p }
}

// WithMetrics injects a shared metrics instance.
func WithMetrics(m *infra.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds an idle engine from cfg.
func New(cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:      cfg,
		clk:      clock.Real{},
		log:      slog.Default(),
		metrics:  infra.NewMetrics(),
		bus:      event.NewBroadcaster(),
		regime:   NewRegime(cfg.RegimeChangeProb),
		learner:  NewLearner(),
		governor: NewGovernor(),
		interval: cfg.TickInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.session = newSession(cfg, e.clk)
	if e.newsSrc == nil {
		e.newsSrc = news.NewChain(e.log, news.NewTemplate(cfg.Seed+1, e.clk.Now))
	}
	return e
}

// Subscribe attaches a consumer to the event stream (push mode). The
// subscriber gauge tracks the subscription's whole lifetime.
func (e *Engine) Subscribe(buffer int) *event.Subscription {
	e.metrics.IncrementSubscribers()
	return e.bus.Subscribe(buffer, e.metrics.DecrementSubscribers)
}

// Session exposes the simulation context for scenario control and inspection.
func (e *Engine) Session() *Session { return e.session }

// Metrics returns a snapshot of the engine's process metrics.
func (e *Engine) Metrics() infra.MetricsSnapshot { return e.metrics.Snapshot() }

// Running reports whether the driver is in the running state.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start moves the driver from idle to running. It returns ErrAlreadyRunning
// when called twice without an intervening Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return domain.ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true
	e.interval = e.cfg.TickInterval

	go e.run(runCtx, e.done)

	e.log.Info("stream driver started",
		slog.Int("symbols", len(e.cfg.Symbols)),
		slog.Duration("interval", e.interval),
		slog.Bool("fan_out", e.cfg.FanOut))
	return nil
}

// Stop cancels the timer and waits for the in-flight tick to finish emitting.
// Idempotent: stopping an idle driver is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done
}

// Close stops the driver and detaches every subscriber.
func (e *Engine) Close() {
	e.Stop()
	e.bus.Close()
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("stream driver stopped")
			return
		case now := <-e.clk.After(e.interval):
			e.tick(ctx, now)
		}
	}
}

// tick runs one full generation cycle: fan-out, regime check, snapshot.
func (e *Engine) tick(ctx context.Context, now time.Time) {
	started := time.Now()

	var out []event.Event
	if e.cfg.FanOut && len(e.cfg.Symbols) > 1 {
		results := make([][]event.Event, len(e.cfg.Symbols))
		var wg sync.WaitGroup
		for i, sym := range e.cfg.Symbols {
			wg.Add(1)
			go func(i int, sym string) {
				defer wg.Done()
				results[i] = e.generateSymbol(ctx, sym, now)
			}(i, sym)
		}
		wg.Wait()
		for _, evs := range results {
			out = append(out, evs...)
		}
	} else {
		for _, sym := range e.cfg.Symbols {
			out = append(out, e.generateSymbol(ctx, sym, now)...)
		}
	}

	e.session.mu.Lock()
	prev := e.session.state.Condition
	changed := e.regime.Step(&e.session.state, e.session.rng, now)
	state := e.session.state
	e.session.mu.Unlock()
	if changed {
		e.log.Info("market regime changed",
			slog.String("from", string(prev)), slog.String("to", string(state.Condition)))
		out = append(out, &event.RegimeEvent{
			BaseEvent: event.BaseEvent{Ts: now},
			Previous:  prev,
			State:     state,
		})
	}

	out = append(out, &event.PerfEvent{
		BaseEvent: event.BaseEvent{Ts: now},
		Snapshot:  e.performanceSnapshot(now),
	})

	for _, ev := range out {
		e.publish(ev)
	}

	latency := time.Since(started)
	e.metrics.RecordTick(latency.Nanoseconds())
	if next := e.governor.Observe(e.interval, latency); next != e.interval {
		e.log.Warn("tick over latency budget, stretching interval",
			slog.Duration("latency", latency),
			slog.Duration("interval", next))
		e.interval = next
	}
}

func (e *Engine) publish(ev event.Event) {
	event.Stamp(ev, e.seq.Add(1))
	e.bus.Publish(ev)
	e.metrics.RecordEvents(1)
}

// generateSymbol produces all events for one symbol in one tick. A panic in
// here is confined to this symbol: it is recovered, reported as an error
// event, and the tick goes on.
func (e *Engine) generateSymbol(ctx context.Context, symbol string, now time.Time) (evs []event.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.RecordError()
			e.log.Error("generation panic recovered",
				slog.String("symbol", symbol), slog.Any("panic", r))
			evs = append(evs, &event.ErrorEvent{
				BaseEvent: event.BaseEvent{Ts: now},
				Symbol:    symbol,
				Phase:     "tick",
				Message:   fmt.Sprint(r),
			})
		}
	}()

	s := e.session
	s.mu.Lock()

	var prevPtr *domain.Quote
	if prev, ok := s.quotes.Get(symbol); ok {
		prevPtr = &prev
	}
	q := NextQuote(symbol, prevPtr, s.state, s.rng, now)
	s.quotes.Put(symbol, q)

	chg, _ := q.ChangePercent.Float64()
	quotePattern := e.learner.Observe("quote_change", math.Abs(chg), now)

	doTrade := s.rng.Float64() < e.cfg.TradeProbability
	doDepth := e.cfg.EnableOrderBook && s.rng.Float64() < e.cfg.DepthProbability
	doNews := e.cfg.EnableNews && s.rng.Float64() < e.cfg.NewsProbability

	var trade domain.Trade
	var tradePattern domain.PatternRecord
	if doTrade {
		trade = NextTrade(&q, s.rng, now)
		tradePattern = e.learner.Observe("trade_size", float64(trade.Size), now)
	}

	var depth domain.MarketDepth
	if doDepth {
		depth = NextDepth(&q, s.rng, now)
	}

	lastF, _ := q.Last.Float64()
	closes := s.appendClose(symbol, lastF)

	s.mu.Unlock()

	evs = append(evs,
		&event.QuoteEvent{BaseEvent: event.BaseEvent{Ts: now}, Quote: q},
		&event.PatternEvent{BaseEvent: event.BaseEvent{Ts: now}, Record: quotePattern},
	)
	if doTrade {
		evs = append(evs,
			&event.TradeEvent{BaseEvent: event.BaseEvent{Ts: now}, Trade: trade},
			&event.PatternEvent{BaseEvent: event.BaseEvent{Ts: now}, Record: tradePattern},
		)
	}
	if doDepth {
		evs = append(evs, &event.DepthEvent{BaseEvent: event.BaseEvent{Ts: now}, Depth: depth})
	}

	if doNews {
		evs = append(evs, e.fetchNews(ctx, symbol, now)...)
	}

	if e.cfg.EnableTechnicals && len(closes) >= technicalsWarmup {
		evs = append(evs, &event.IndicatorEvent{
			BaseEvent: event.BaseEvent{Ts: now},
			Report:    buildIndicatorReport(symbol, closes, now),
		})
	}

	return evs
}

// fetchNews runs the provider chain. The chain ends in the template
// generator, so a non-nil error here means every provider failed, which is
// reported but never stops the feed.
func (e *Engine) fetchNews(ctx context.Context, symbol string, now time.Time) []event.Event {
	newsCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	items, err := e.newsSrc.Fetch(newsCtx, []string{symbol}, e.cfg.NewsBatch)
	if err != nil {
		e.metrics.RecordNewsFallback()
		return []event.Event{&event.ErrorEvent{
			BaseEvent: event.BaseEvent{Ts: now},
			Symbol:    symbol,
			Phase:     "news",
			Message:   err.Error(),
		}}
	}

	evs := make([]event.Event, 0, len(items))
	for _, item := range items {
		evs = append(evs, &event.NewsEvent{BaseEvent: event.BaseEvent{Ts: now}, Item: item})
	}
	return evs
}

func buildIndicatorReport(symbol string, closes []float64, now time.Time) domain.IndicatorReport {
	report := domain.IndicatorReport{Symbol: symbol, Signal: "hold", Timestamp: now}
	report.SMA, _ = indicators.SMA(closes, 20)
	report.EMA, _ = indicators.EMA(closes, 20)
	report.StochK, _ = indicators.Stochastic(closes, 14)
	report.BollUpper, _, report.BollLower, _ = indicators.Bollinger(closes, 20, 2)

	rsi, rsiOK := indicators.RSI(closes, 14)
	macd, sig, macdOK := indicators.MACD(closes)
	report.RSI = rsi
	report.MACD = macd
	report.MACDSignal = sig
	if rsiOK && macdOK {
		report.Signal = indicators.Signal(rsi, macd, sig)
	}
	return report
}

func (e *Engine) performanceSnapshot(now time.Time) domain.PerformanceSnapshot {
	s := e.session
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.quotes.Len()
	return domain.PerformanceSnapshot{
		CacheHitRate:    s.quotes.HitRate(),
		MemoryEstimate:  int64(active)*quoteMemEstimate + e.learner.MemoryEstimate(),
		ActiveSymbols:   active,
		LearnedPatterns: e.learner.Len(),
		TickInterval:    e.interval,
		Timestamp:       now,
	}
}

// DumpState writes the session state to a file for post-mortem inspection.
func (e *Engine) DumpState(filename string) error {
	s := e.session
	s.mu.Lock()
	data := struct {
		Seq    uint64                  `json:"seq"`
		State  domain.MarketState      `json:"state"`
		Quotes map[string]domain.Quote `json:"quotes"`
	}{
		Seq:    e.seq.Load(),
		State:  s.state,
		Quotes: s.quotes.Items(),
	}
	s.mu.Unlock()

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}
