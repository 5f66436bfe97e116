package engine

import (
	"math/rand"
	"sync"
	"time"

	"marketsim/internal/cache"
	"marketsim/internal/domain"

	"marketsim/pkg/clock"
)

// closesKeep bounds the per-symbol close history kept for technicals.
const closesKeep = 64

// Session owns the shared mutable state of one simulation: the market regime,
// the continuity cache, the injected random source, and the close history.
// It is threaded explicitly through every generation call. The mutex matters
// only in fan-out mode; sequential ticks are a single logical timeline.
type Session struct {
	mu sync.Mutex

	rng    *rand.Rand
	state  domain.MarketState
	quotes *cache.Cache[domain.Quote]
	closes map[string][]float64
}

func newSession(cfg Config, clk clock.Clock) *Session {
	now := clk.Now()
	return &Session{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		state:  NewMarketState(cfg.InitialCondition, cfg.InitialVolatility, now),
		quotes: cache.New[domain.Quote](cfg.CacheSize, cfg.CacheTTL, clk.Now),
		closes: make(map[string][]float64),
	}
}

// appendClose records a close and returns a copy of the symbol's history.
// Caller must hold the session lock.
func (s *Session) appendClose(symbol string, close float64) []float64 {
	series := s.closes[symbol]
	if len(series) >= closesKeep {
		copy(series, series[1:])
		series[closesKeep-1] = close
	} else {
		series = append(series, close)
	}
	s.closes[symbol] = series

	out := make([]float64, len(series))
	copy(out, series)
	return out
}

// State returns a copy of the current market state.
func (s *Session) State() domain.MarketState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetCondition forces the regime to a condition, re-deriving volatility and
// momentum. Used by callers that want a scenario rather than a random walk
// through regimes.
func (s *Session) SetCondition(c domain.MarketCondition, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !c.Valid() {
		return
	}
	s.state.Condition = c
	s.state.Volatility = volatilityFor(c, s.rng)
	s.state.Momentum = momentumFor(c, s.rng)
	s.state.TradingHours = domain.InTradingHours(now)
	s.state.Timestamp = now
}
