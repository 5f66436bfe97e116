package service

import (
	"context"
	"sort"
	"sync"

	"marketsim/internal/domain"
	"marketsim/internal/event"
)

const newsKeep = 10

// Snapshot is the latest known state for one symbol, assembled from the
// event stream for API reads.
type Snapshot struct {
	Symbol     string                  `json:"symbol"`
	Quote      *domain.Quote           `json:"quote,omitempty"`
	LastTrade  *domain.Trade           `json:"last_trade,omitempty"`
	Depth      *domain.MarketDepth     `json:"depth,omitempty"`
	Indicators *domain.IndicatorReport `json:"indicators,omitempty"`
	News       []domain.NewsItem       `json:"news,omitempty"`
}

// MarketService maintains the read model: latest per-symbol state plus the
// current regime, fed by an engine subscription.
type MarketService struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
	regime    domain.MarketState
	perf      domain.PerformanceSnapshot
}

// NewMarketService creates an empty read model.
func NewMarketService() *MarketService {
	return &MarketService{snapshots: make(map[string]*Snapshot)}
}

// Run consumes the subscription until the context ends or the channel closes.
func (s *MarketService) Run(ctx context.Context, sub *event.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			s.apply(ev)
		}
	}
}

func (s *MarketService) apply(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case *event.QuoteEvent:
		q := e.Quote
		s.snapshot(q.Symbol).Quote = &q
	case *event.TradeEvent:
		t := e.Trade
		s.snapshot(t.Symbol).LastTrade = &t
	case *event.DepthEvent:
		d := e.Depth
		s.snapshot(d.Symbol).Depth = &d
	case *event.IndicatorEvent:
		r := e.Report
		s.snapshot(r.Symbol).Indicators = &r
	case *event.NewsEvent:
		snap := s.snapshot(e.Item.Symbol)
		snap.News = append(snap.News, e.Item)
		if len(snap.News) > newsKeep {
			snap.News = snap.News[len(snap.News)-newsKeep:]
		}
	case *event.RegimeEvent:
		s.regime = e.State
	case *event.PerfEvent:
		s.perf = e.Snapshot
	}
}

// snapshot returns the entry for symbol, creating it on first sight.
// Caller must hold the write lock.
func (s *MarketService) snapshot(symbol string) *Snapshot {
	snap, ok := s.snapshots[symbol]
	if !ok {
		snap = &Snapshot{Symbol: symbol}
		s.snapshots[symbol] = snap
	}
	return snap
}

// GetAll returns all snapshots sorted by symbol.
func (s *MarketService) GetAll() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, *snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Get returns the snapshot for one symbol.
func (s *MarketService) Get(symbol string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[symbol]
	if !ok {
		return Snapshot{}, false
	}
	return *snap, true
}

// Regime returns the latest observed market state.
func (s *MarketService) Regime() domain.MarketState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regime
}

// Performance returns the latest performance snapshot.
func (s *MarketService) Performance() domain.PerformanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.perf
}
