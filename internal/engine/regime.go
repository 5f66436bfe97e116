package engine

import (
	"math/rand"
	"time"

	"marketsim/internal/domain"
)

// generatedConditions is the subset the machine cycles through. The full
// condition enum (crash, rally, sideways) stays accepted as an initial
// configuration but is never entered spontaneously.
var generatedConditions = []domain.MarketCondition{
	domain.ConditionNormal,
	domain.ConditionBullish,
	domain.ConditionBearish,
	domain.ConditionVolatile,
}

// Regime is the stochastic market condition machine. No state is terminal;
// it runs for the lifetime of the simulation.
type Regime struct {
	transitionProb float64
}

// NewRegime creates a machine transitioning with probability prob per tick.
func NewRegime(prob float64) *Regime {
	if prob < 0 || prob > 1 {
		prob = 0.05
	}
	return &Regime{transitionProb: prob}
}

// NewMarketState builds the initial shared state.
func NewMarketState(condition domain.MarketCondition, volatility float64, now time.Time) domain.MarketState {
	if !condition.Valid() {
		condition = domain.ConditionNormal
	}
	if volatility <= 0 || volatility > 1 {
		volatility = 0.2
	}
	return domain.MarketState{
		Condition:    condition,
		Volatility:   volatility,
		Momentum:     momentumFor(condition, nil),
		TradingHours: domain.InTradingHours(now),
		Timestamp:    now,
	}
}

// Step rolls the transition die once. On a transition it picks a new
// condition uniformly, re-derives volatility and momentum, and stamps the
// state. Returns true when the condition changed hands.
func (r *Regime) Step(s *domain.MarketState, rng *rand.Rand, now time.Time) bool {
	if rng.Float64() >= r.transitionProb {
		return false
	}

	next := generatedConditions[rng.Intn(len(generatedConditions))]
	s.Condition = next
	s.Volatility = volatilityFor(next, rng)
	s.Momentum = momentumFor(next, rng)
	s.TradingHours = domain.InTradingHours(now)
	s.Timestamp = now
	return true
}

func volatilityFor(c domain.MarketCondition, rng *rand.Rand) float64 {
	jitter := func(span float64) float64 {
		if rng == nil {
			return span / 2
		}
		return rng.Float64() * span
	}
	var v float64
	switch c {
	case domain.ConditionVolatile, domain.ConditionCrash:
		v = 0.7 + jitter(0.3)
	case domain.ConditionBullish, domain.ConditionBearish, domain.ConditionRally:
		v = 0.25 + jitter(0.15)
	default:
		v = 0.15 + jitter(0.1)
	}
	if v > 1 {
		v = 1
	}
	return v
}

func momentumFor(c domain.MarketCondition, rng *rand.Rand) float64 {
	jitter := func(span float64) float64 {
		if rng == nil {
			return span / 2
		}
		return rng.Float64() * span
	}
	switch c {
	case domain.ConditionBullish, domain.ConditionRally:
		return 0.3 + jitter(0.4)
	case domain.ConditionBearish, domain.ConditionCrash:
		return -(0.3 + jitter(0.4))
	default:
		return 0
	}
}
