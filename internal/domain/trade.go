package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the aggressor side of a trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Trade is a single execution derived from a quote. Immutable once created;
// ownership transfers to subscribers.
type Trade struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Size      int64           `json:"size"`
	Side      TradeSide       `json:"side"`
	Exchange  string          `json:"exchange"`
	IsBlock   bool            `json:"is_block"`
	IsOddLot  bool            `json:"is_odd_lot"`
}

// DepthLevel is one resting price level of the book.
type DepthLevel struct {
	Price  decimal.Decimal `json:"price"`
	Size   int64           `json:"size"`
	Orders int             `json:"orders"`
}

// MarketDepth is an order-book snapshot: bids descending, asks ascending,
// spread and midpoint recomputed from the triggering quote so the book never
// diverges from top-of-book.
type MarketDepth struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Bids      []DepthLevel    `json:"bids"`
	Asks      []DepthLevel    `json:"asks"`
	Spread    decimal.Decimal `json:"spread"`
	Midpoint  decimal.Decimal `json:"midpoint"`
}

// Validate checks level ordering (bids strictly decreasing, asks strictly
// increasing) and a non-negative spread.
func (d *MarketDepth) Validate() error {
	for i := 1; i < len(d.Bids); i++ {
		if !d.Bids[i].Price.LessThan(d.Bids[i-1].Price) {
			return ErrDepthUnordered
		}
	}
	for i := 1; i < len(d.Asks); i++ {
		if !d.Asks[i].Price.GreaterThan(d.Asks[i-1].Price) {
			return ErrDepthUnordered
		}
	}
	if d.Spread.IsNegative() {
		return ErrSpreadOutOfBand
	}
	return nil
}

// NewsItem is a structured headline attached to a symbol.
type NewsItem struct {
	Symbol    string    `json:"symbol"`
	Headline  string    `json:"headline"`
	Sentiment string    `json:"sentiment"` // "positive", "negative", "neutral"
	Impact    float64   `json:"impact"`    // [0, 1]
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// PerformanceSnapshot is a derived, read-only view recomputed each tick.
type PerformanceSnapshot struct {
	CacheHitRate    float64       `json:"cache_hit_rate"`
	MemoryEstimate  int64         `json:"memory_estimate"` // bytes, rough
	ActiveSymbols   int           `json:"active_symbols"`
	LearnedPatterns int           `json:"learned_patterns"`
	TickInterval    time.Duration `json:"tick_interval"`
	Timestamp       time.Time     `json:"timestamp"`
}
