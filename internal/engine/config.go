package engine

import (
	"time"

	"marketsim/internal/domain"
)

// Config is the construction-time surface of the engine.
type Config struct {
	Symbols           []string
	TickInterval      time.Duration
	InitialCondition  domain.MarketCondition
	InitialVolatility float64
	RegimeChangeProb  float64

	TradeProbability float64
	DepthProbability float64
	NewsProbability  float64
	NewsBatch        int

	EnableNews       bool
	EnableOrderBook  bool
	EnableTechnicals bool

	CacheSize int
	CacheTTL  time.Duration

	// FanOut issues per-symbol generation concurrently within a tick and
	// joins before publishing. Sequential mode is the deterministic one.
	FanOut bool

	// Seed for the injected random source. Zero picks a wall-clock seed.
	Seed int64
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if !c.InitialCondition.Valid() {
		c.InitialCondition = domain.ConditionNormal
	}
	if c.InitialVolatility <= 0 || c.InitialVolatility > 1 {
		c.InitialVolatility = 0.2
	}
	if c.RegimeChangeProb <= 0 || c.RegimeChangeProb > 1 {
		c.RegimeChangeProb = 0.05
	}
	if c.TradeProbability < 0 || c.TradeProbability > 1 {
		c.TradeProbability = 0.3
	}
	if c.DepthProbability < 0 || c.DepthProbability > 1 {
		c.DepthProbability = 0.2
	}
	if c.NewsProbability < 0 || c.NewsProbability > 1 {
		c.NewsProbability = 0.05
	}
	if c.NewsBatch <= 0 {
		c.NewsBatch = 1
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 1000
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}
