package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsim/internal/domain"
)

func sampleQuote(t *testing.T, seed int64) domain.Quote {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	return NextQuote("AAPL", nil, testState(0.3, 0), rng, time.Now())
}

func TestNextTrade_PriceBand(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	q := sampleQuote(t, 31)
	last, _ := q.Last.Float64()

	for i := 0; i < 5000; i++ {
		tr := NextTrade(&q, rng, time.Now())
		price, _ := tr.Price.Float64()
		// ±0.05% of last, plus a cent of rounding slack.
		assert.InDelta(t, last, price, last*0.0006+0.01)
		assert.Equal(t, "AAPL", tr.Symbol)
		assert.NotEmpty(t, tr.ID)
		assert.Contains(t, []domain.TradeSide{domain.SideBuy, domain.SideSell}, tr.Side)
	}
}

func TestNextTrade_SizesAndFlags(t *testing.T) {
	rng := rand.New(rand.NewSource(37))
	q := sampleQuote(t, 37)

	var blocks, oddLots int
	const n = 10000
	for i := 0; i < n; i++ {
		tr := NextTrade(&q, rng, time.Now())
		require.Positive(t, tr.Size)
		switch {
		case tr.IsBlock:
			blocks++
			assert.Zero(t, tr.Size%1000, "block trades print in thousands")
			assert.GreaterOrEqual(t, tr.Size, int64(10000))
		case tr.IsOddLot:
			oddLots++
			assert.Less(t, tr.Size, int64(100))
		default:
			assert.Zero(t, tr.Size%100, "round lots print in hundreds")
		}
	}

	// ~5% blocks, ~10% odd lots (blocks win when both flags fire).
	assert.InDelta(t, 0.05, float64(blocks)/n, 0.02)
	assert.InDelta(t, 0.095, float64(oddLots)/n, 0.03)
}

func TestNextTrade_DeterministicIDs(t *testing.T) {
	q := sampleQuote(t, 41)

	tr1 := NextTrade(&q, rand.New(rand.NewSource(99)), time.Unix(0, 0))
	tr2 := NextTrade(&q, rand.New(rand.NewSource(99)), time.Unix(0, 0))
	assert.Equal(t, tr1.ID, tr2.ID, "same seed must reproduce trade IDs")
}

func TestNextDepth_TenOrderedLevels(t *testing.T) {
	rng := rand.New(rand.NewSource(43))
	q := sampleQuote(t, 43)

	for i := 0; i < 1000; i++ {
		d := NextDepth(&q, rng, time.Now())
		require.Len(t, d.Bids, 10)
		require.Len(t, d.Asks, 10)
		require.NoError(t, d.Validate())

		assert.True(t, d.Bids[0].Price.Equal(q.Bid), "level 0 bid is top-of-book")
		assert.True(t, d.Asks[0].Price.Equal(q.Ask), "level 0 ask is top-of-book")

		cent := decimal.NewFromFloat(0.01)
		for lvl := 1; lvl < 10; lvl++ {
			assert.True(t, d.Bids[lvl-1].Price.Sub(d.Bids[lvl].Price).Equal(cent))
			assert.True(t, d.Asks[lvl].Price.Sub(d.Asks[lvl-1].Price).Equal(cent))
		}
	}
}

func TestNextDepth_SpreadFromQuoteNotLevels(t *testing.T) {
	rng := rand.New(rand.NewSource(47))
	q := sampleQuote(t, 47)

	d := NextDepth(&q, rng, time.Now())
	assert.True(t, d.Spread.Equal(q.Spread()))
	assert.False(t, d.Spread.IsNegative())

	two := decimal.NewFromInt(2)
	assert.True(t, d.Midpoint.Equal(q.Bid.Add(q.Ask).Div(two)))
}
