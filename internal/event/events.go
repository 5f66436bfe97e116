package event

import (
	"time"

	"marketsim/internal/domain"
)

// Type tags every event published by the engine.
type Type string

const (
	TypeQuote     Type = "quote"
	TypeTrade     Type = "trade"
	TypeDepth     Type = "depth"
	TypeNews      Type = "news"
	TypeRegime    Type = "regime"
	TypePattern   Type = "pattern"
	TypePerf      Type = "performance"
	TypeIndicator Type = "indicator"
	TypeLog       Type = "log"
	TypeError     Type = "error"
)

// Event is the common interface of everything the engine publishes.
type Event interface {
	GetSeq() uint64
	GetTs() time.Time
	GetType() Type

	stamp(seq uint64)
}

// BaseEvent carries the sequence number and timestamp shared by all events.
// Seq is assigned by the driver at publish time and is strictly increasing
// across the whole run, so tick k's events always order before tick k+1's.
type BaseEvent struct {
	Seq uint64    `json:"seq"`
	Ts  time.Time `json:"ts"`
}

func (b *BaseEvent) GetSeq() uint64    { return b.Seq }
func (b *BaseEvent) GetTs() time.Time  { return b.Ts }
func (b *BaseEvent) stamp(seq uint64)  { b.Seq = seq }

// Stamp assigns the sequence number. Only the publisher calls this.
func Stamp(ev Event, seq uint64) { ev.stamp(seq) }

// QuoteEvent is published for every generated quote.
type QuoteEvent struct {
	BaseEvent
	Quote domain.Quote `json:"quote"`
}

func (*QuoteEvent) GetType() Type { return TypeQuote }

// TradeEvent is published when a tick derives a trade from a quote.
type TradeEvent struct {
	BaseEvent
	Trade domain.Trade `json:"trade"`
}

func (*TradeEvent) GetType() Type { return TypeTrade }

// DepthEvent carries an order-book snapshot.
type DepthEvent struct {
	BaseEvent
	Depth domain.MarketDepth `json:"depth"`
}

func (*DepthEvent) GetType() Type { return TypeDepth }

// NewsEvent carries one headline from the provider chain.
type NewsEvent struct {
	BaseEvent
	Item domain.NewsItem `json:"item"`
}

func (*NewsEvent) GetType() Type { return TypeNews }

// RegimeEvent is published when the market condition transitions.
type RegimeEvent struct {
	BaseEvent
	Previous domain.MarketCondition `json:"previous"`
	State    domain.MarketState     `json:"state"`
}

func (*RegimeEvent) GetType() Type { return TypeRegime }

// PatternEvent is published each time the learner absorbs a sample.
type PatternEvent struct {
	BaseEvent
	Record domain.PatternRecord `json:"record"`
}

func (*PatternEvent) GetType() Type { return TypePattern }

// PerfEvent carries the per-tick performance snapshot.
type PerfEvent struct {
	BaseEvent
	Snapshot domain.PerformanceSnapshot `json:"snapshot"`
}

func (*PerfEvent) GetType() Type { return TypePerf }

// IndicatorEvent carries derived technical indicator values for one symbol.
type IndicatorEvent struct {
	BaseEvent
	Report domain.IndicatorReport `json:"report"`
}

func (*IndicatorEvent) GetType() Type { return TypeIndicator }

// LogEvent is a generic structured notification for subscribers that do not
// read the process log.
type LogEvent struct {
	BaseEvent
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (*LogEvent) GetType() Type { return TypeLog }

// ErrorEvent reports a recovered generation failure. The run continues.
type ErrorEvent struct {
	BaseEvent
	Symbol  string `json:"symbol"`
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

func (*ErrorEvent) GetType() Type { return TypeError }
