package domain

import "time"

// PatternRecord aggregates a bounded history of observed event shapes.
// Samples holds at most the 100 most recent observations; Count keeps the
// lifetime total. Records are never deleted during a session.
type PatternRecord struct {
	Type      string    `json:"type"`
	Samples   []float64 `json:"samples"`
	Count     int64     `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IndicatorReport is the technical-indicator view computed over a symbol's
// recent closes. Values are plain floats; they are analytics, not money.
type IndicatorReport struct {
	Symbol     string    `json:"symbol"`
	SMA        float64   `json:"sma"`
	EMA        float64   `json:"ema"`
	RSI        float64   `json:"rsi"`
	MACD       float64   `json:"macd"`
	MACDSignal float64   `json:"macd_signal"`
	BollUpper  float64   `json:"boll_upper"`
	BollLower  float64   `json:"boll_lower"`
	StochK     float64   `json:"stoch_k"`
	Signal     string    `json:"signal"` // "buy", "sell", "hold"
	Timestamp  time.Time `json:"timestamp"`
}
