package engine

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketsim/internal/domain"
)

const depthLevels = 10

var exchanges = []string{"NYSE", "NASDAQ", "ARCA", "BATS", "IEX"}

// NextTrade derives an execution from q. The print lands within a ±0.05%
// band of the quote's last. Trade IDs are drawn from rng so a seeded run
// reproduces them.
func NextTrade(q *domain.Quote, rng *rand.Rand, now time.Time) domain.Trade {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		// rand.Rand's Read cannot fail; keep the event stream alive regardless.
		id = uuid.Nil
	}

	lastF, _ := q.Last.Float64()
	price := round2(lastF * (1 + (rng.Float64()-0.5)*0.001))

	side := domain.SideBuy
	if rng.Intn(2) == 1 {
		side = domain.SideSell
	}

	size := int64(rng.Intn(10)+1) * 100
	isBlock := rng.Float64() < 0.05
	isOddLot := rng.Float64() < 0.10
	switch {
	case isBlock:
		size = int64(rng.Intn(90)+10) * 1000
		isOddLot = false
	case isOddLot:
		size = int64(rng.Intn(99) + 1)
	}

	return domain.Trade{
		ID:        id.String(),
		Symbol:    q.Symbol,
		Timestamp: now,
		Price:     price,
		Size:      size,
		Side:      side,
		Exchange:  exchanges[rng.Intn(len(exchanges))],
		IsBlock:   isBlock,
		IsOddLot:  isOddLot,
	}
}

// NextDepth builds a ten-level book on each side of q. Level i sits i cents
// away from the quote's best bid/ask; spread and midpoint come from the quote
// itself so the book never diverges from top-of-book.
func NextDepth(q *domain.Quote, rng *rand.Rand, now time.Time) domain.MarketDepth {
	bids := make([]domain.DepthLevel, depthLevels)
	asks := make([]domain.DepthLevel, depthLevels)

	for i := 0; i < depthLevels; i++ {
		offset := centStep.Mul(decimal.NewFromInt(int64(i)))
		bids[i] = domain.DepthLevel{
			Price:  q.Bid.Sub(offset),
			Size:   int64(rng.Intn(50)+1) * 100,
			Orders: rng.Intn(20) + 1,
		}
		asks[i] = domain.DepthLevel{
			Price:  q.Ask.Add(offset),
			Size:   int64(rng.Intn(50)+1) * 100,
			Orders: rng.Intn(20) + 1,
		}
	}

	two := decimal.NewFromInt(2)
	return domain.MarketDepth{
		Symbol:    q.Symbol,
		Timestamp: now,
		Bids:      bids,
		Asks:      asks,
		Spread:    q.Ask.Sub(q.Bid),
		Midpoint:  q.Bid.Add(q.Ask).Div(two),
	}
}
