package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsim/internal/domain"
	"marketsim/internal/event"
	"marketsim/pkg/clock"
)

func pullEngine(t *testing.T, tradeProb float64) *Engine {
	t.Helper()
	return New(Config{
		Symbols:          []string{"AAPL", "MSFT"},
		Seed:             11,
		TradeProbability: tradeProb,
	}, WithClock(clock.NewManual(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))),
		WithLogger(quietLogger()))
}

func TestStream_ChunkedExhaustion(t *testing.T) {
	eng := pullEngine(t, 0)
	st := eng.NewStream(25, 10, 0)
	ctx := context.Background()

	sizes := []int{}
	total := 0
	for {
		chunk, err := st.Next(ctx)
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrStreamClosed)
			break
		}
		sizes = append(sizes, len(chunk))
		total += len(chunk)
	}

	assert.Equal(t, []int{10, 10, 5}, sizes)
	assert.Equal(t, 25, total)
	assert.Zero(t, st.Remaining())
}

func TestStream_StaysClosedAfterExhaustion(t *testing.T) {
	eng := pullEngine(t, 0)
	st := eng.NewStream(3, 10, 0)
	ctx := context.Background()

	chunk, err := st.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, chunk, 3)

	for i := 0; i < 3; i++ {
		_, err := st.Next(ctx)
		assert.ErrorIs(t, err, domain.ErrStreamClosed)
	}
}

func TestStream_SequencesAndAlternatesSymbols(t *testing.T) {
	eng := pullEngine(t, 0)
	st := eng.NewStream(6, 6, 0)

	chunk, err := st.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, chunk, 6)

	var lastSeq uint64
	for i, ev := range chunk {
		assert.Greater(t, ev.GetSeq(), lastSeq)
		lastSeq = ev.GetSeq()

		qe, ok := ev.(*event.QuoteEvent)
		require.True(t, ok, "with trades disabled every item is a quote")
		if i%2 == 0 {
			assert.Equal(t, "AAPL", qe.Quote.Symbol)
		} else {
			assert.Equal(t, "MSFT", qe.Quote.Symbol)
		}
	}
}

func TestStream_TradesRideAlongWhenRoomAllows(t *testing.T) {
	eng := pullEngine(t, 1) // every quote derives a trade
	st := eng.NewStream(10, 10, 0)

	chunk, err := st.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, chunk, 10)

	var quotes, trades int
	for _, ev := range chunk {
		switch ev.(type) {
		case *event.QuoteEvent:
			quotes++
		case *event.TradeEvent:
			trades++
		}
	}
	// Quote/trade pairs fill the chunk, five pairs exactly.
	assert.Equal(t, 5, quotes)
	assert.Equal(t, 5, trades)
}

func TestStream_ContinuityWithPushSide(t *testing.T) {
	eng := pullEngine(t, 0)
	st := eng.NewStream(4, 2, 0)
	ctx := context.Background()

	first, err := st.Next(ctx)
	require.NoError(t, err)
	second, err := st.Next(ctx)
	require.NoError(t, err)

	q1 := first[0].(*event.QuoteEvent).Quote
	q2 := second[0].(*event.QuoteEvent).Quote
	require.Equal(t, q1.Symbol, q2.Symbol)
	assert.True(t, q2.Last.Sub(q2.Change).Equal(q1.Last),
		"later pulls continue from the cached quote, not a reseed")
	assert.True(t, q2.Open.Equal(q1.Open), "session open survives across chunks")
}

func TestStream_DelayBetweenChunks(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	eng := New(Config{Symbols: []string{"AAPL"}, Seed: 3, TradeProbability: 0},
		WithClock(clk), WithLogger(quietLogger()))

	st := eng.NewStream(4, 2, time.Second)
	ctx := context.Background()
	start := clk.Now()

	_, err := st.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, start, clk.Now(), "no delay before the first chunk")

	_, err = st.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Second), clk.Now())
}

func TestStream_ContextCancellation(t *testing.T) {
	eng := pullEngine(t, 0)
	st := eng.NewStream(100, 10, 0)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := st.Next(ctx)
	require.NoError(t, err)

	cancel()
	_, err = st.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// Cancellation is terminal for this iterator.
	_, err = st.Next(context.Background())
	assert.ErrorIs(t, err, domain.ErrStreamClosed)
}

func TestStream_CloseIsTerminal(t *testing.T) {
	eng := pullEngine(t, 0)
	st := eng.NewStream(100, 10, 0)

	st.Close()
	_, err := st.Next(context.Background())
	assert.ErrorIs(t, err, domain.ErrStreamClosed)
	assert.Zero(t, st.Remaining())

	// A fresh iterator over the same engine still works.
	chunk, err := eng.NewStream(5, 10, 0).Next(context.Background())
	require.NoError(t, err)
	assert.Len(t, chunk, 5)
}

func TestNextBatch_DrainsToTarget(t *testing.T) {
	eng := pullEngine(t, 0)

	events, err := eng.NextBatch(context.Background(), 25, 10, 0)
	require.NoError(t, err)
	assert.Len(t, events, 25)
}
