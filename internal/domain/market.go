package domain

import "time"

// MarketCondition is the shared qualitative regime influencing every symbol.
type MarketCondition string

const (
	ConditionNormal   MarketCondition = "normal"
	ConditionBullish  MarketCondition = "bullish"
	ConditionBearish  MarketCondition = "bearish"
	ConditionVolatile MarketCondition = "volatile"
	ConditionCrash    MarketCondition = "crash"
	ConditionRally    MarketCondition = "rally"
	ConditionSideways MarketCondition = "sideways"
)

// Valid reports whether c is a known condition.
func (c MarketCondition) Valid() bool {
	switch c {
	case ConditionNormal, ConditionBullish, ConditionBearish, ConditionVolatile,
		ConditionCrash, ConditionRally, ConditionSideways:
		return true
	}
	return false
}

// MarketState holds the regime shared by all generators within a tick.
// Mutated only by the regime machine; generators read it.
type MarketState struct {
	Condition    MarketCondition `json:"condition"`
	Volatility   float64         `json:"volatility"` // [0, 1]
	Momentum     float64         `json:"momentum"`   // [-1, 1]
	TradingHours bool            `json:"trading_hours"`
	Timestamp    time.Time       `json:"timestamp"`
}

// InTradingHours reports whether t falls inside the regular session
// (weekdays 09:30-16:00 in t's location).
func InTradingHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	return mins >= 9*60+30 && mins < 16*60
}
