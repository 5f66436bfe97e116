package engine

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"marketsim/internal/domain"
)

// Seed price band used when a symbol has no cached prior quote.
const (
	seedPriceMin = 100.0
	seedPriceMax = 500.0
)

var centStep = decimal.NewFromFloat(0.01)

func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// NextQuote derives a quote from the symbol's previous quote and the shared
// market state. prev may be nil; a nil or non-positive prior last price is
// treated as absent and the walk reseeds. The function is total: it never
// fails, it only draws from rng.
//
// The walk: changePct = (r-0.5 + momentum*0.1) * volatility * 2, applied to
// the prior last. Bid/ask sit half a spread away from last, with the spread
// drawn from [0.01, 0.06). All money is rounded to cents, last first, so the
// top-of-book band survives rounding.
func NextQuote(symbol string, prev *domain.Quote, mkt domain.MarketState, rng *rand.Rand, now time.Time) domain.Quote {
	if prev != nil && !prev.Last.IsPositive() {
		prev = nil
	}

	prevLast := seedPriceMin + rng.Float64()*(seedPriceMax-seedPriceMin)
	if prev != nil {
		prevLast, _ = prev.Last.Float64()
	}

	changePct := (rng.Float64() - 0.5 + mkt.Momentum*0.1) * mkt.Volatility * 2
	newLast := prevLast * (1 + changePct/100)

	last := round2(newLast)
	half := decimal.NewFromFloat((0.01 + rng.Float64()*0.05) / 2)
	bid := last.Sub(half).Round(2)
	ask := last.Add(half).Round(2)

	// Session open is pinned on first generation and carried forward.
	var open decimal.Decimal
	if prev != nil && prev.Open.IsPositive() {
		open = prev.Open
	} else {
		open = round2(newLast * (1 + (rng.Float64()-0.5)*0.02))
	}

	high := round2(newLast * (1 + rng.Float64()*0.01))
	if high.LessThan(last) {
		high = last
	}
	low := round2(newLast * (1 - rng.Float64()*0.01))
	if low.GreaterThan(last) {
		low = last
	}
	vwap := round2(newLast * (1 + (rng.Float64()-0.5)*0.004))

	return domain.Quote{
		Symbol:        symbol,
		Timestamp:     now,
		Bid:           bid,
		Ask:           ask,
		BidSize:       int64(rng.Intn(50)+1) * 100,
		AskSize:       int64(rng.Intn(50)+1) * 100,
		Last:          last,
		LastSize:      int64(rng.Intn(10)+1) * 100,
		Volume:        int64(rng.Intn(10000)+100) * 100,
		Change:        last.Sub(round2(prevLast)),
		ChangePercent: decimal.NewFromFloat(changePct).Round(4),
		High:          high,
		Low:           low,
		Open:          open,
		VWAP:          vwap,
	}
}
