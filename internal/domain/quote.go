package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a top-of-book snapshot for a single symbol at one tick.
// A quote is superseded by the next quote for the same symbol; the continuity
// cache holds the most recent one.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Timestamp     time.Time       `json:"timestamp"`
	Bid           decimal.Decimal `json:"bid"`
	Ask           decimal.Decimal `json:"ask"`
	BidSize       int64           `json:"bid_size"`
	AskSize       int64           `json:"ask_size"`
	Last          decimal.Decimal `json:"last"`
	LastSize      int64           `json:"last_size"`
	Volume        int64           `json:"volume"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Open          decimal.Decimal `json:"open"`
	VWAP          decimal.Decimal `json:"vwap"`
}

// Spread returns ask - bid.
func (q *Quote) Spread() decimal.Decimal {
	return q.Ask.Sub(q.Bid)
}

// Validate checks the top-of-book invariant: ask > bid and the spread within
// [0.01, 0.06].
func (q *Quote) Validate() error {
	if !q.Ask.GreaterThan(q.Bid) {
		return ErrCrossedQuote
	}
	spread := q.Spread()
	if spread.LessThan(decimal.NewFromFloat(0.01)) || spread.GreaterThan(decimal.NewFromFloat(0.06)) {
		return ErrSpreadOutOfBand
	}
	return nil
}
