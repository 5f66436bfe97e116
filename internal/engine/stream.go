package engine

import (
	"context"
	"time"

	"marketsim/internal/domain"
	"marketsim/internal/event"
)

// Stream is the bounded pull-mode iterator: it produces up to a target
// number of quote/trade items in chunks, at the consumer's pace, with no
// wall-clock tick timer. A stream shares the engine's session, so pulled
// quotes keep the same per-symbol continuity as pushed ones. Once exhausted
// or closed it stays closed; build a new stream to read again.
//
// A Stream is single-consumer; do not share one across goroutines.
type Stream struct {
	eng       *Engine
	target    int
	chunkSize int
	delay     time.Duration

	produced int
	cursor   int
	seq      uint64
	closed   bool
}

// NewStream creates an iterator producing up to count items in chunks of
// chunkSize, sleeping delay between chunks.
func (e *Engine) NewStream(count, chunkSize int, delay time.Duration) *Stream {
	if count <= 0 {
		count = 1
	}
	if chunkSize <= 0 {
		chunkSize = 10
	}
	return &Stream{eng: e, target: count, chunkSize: chunkSize, delay: delay}
}

// Next returns the next chunk of events. After the final chunk the stream is
// closed and further calls return ErrStreamClosed.
func (st *Stream) Next(ctx context.Context) ([]event.Event, error) {
	if st.closed {
		return nil, domain.ErrStreamClosed
	}
	if err := ctx.Err(); err != nil {
		st.closed = true
		return nil, err
	}

	if st.produced > 0 && st.delay > 0 {
		select {
		case <-ctx.Done():
			st.closed = true
			return nil, ctx.Err()
		case <-st.eng.clk.After(st.delay):
		}
	}

	want := st.target - st.produced
	if want > st.chunkSize {
		want = st.chunkSize
	}

	symbols := st.eng.cfg.Symbols
	chunk := make([]event.Event, 0, want)
	for len(chunk) < want {
		sym := symbols[st.cursor%len(symbols)]
		st.cursor++

		quote, trade, hasTrade := st.pullOne(sym)
		st.seq++
		event.Stamp(quote, st.seq)
		chunk = append(chunk, quote)

		// A derived trade rides along only if the chunk has room for it.
		if hasTrade && len(chunk) < want {
			st.seq++
			event.Stamp(trade, st.seq)
			chunk = append(chunk, trade)
		}
	}

	st.produced += len(chunk)
	if st.produced >= st.target {
		st.closed = true
	}
	return chunk, nil
}

// pullOne generates one quote (and possibly a trade) against the shared session.
func (st *Stream) pullOne(symbol string) (*event.QuoteEvent, *event.TradeEvent, bool) {
	e := st.eng
	now := e.clk.Now()

	s := e.session
	s.mu.Lock()
	defer s.mu.Unlock()

	var prevPtr *domain.Quote
	if prev, ok := s.quotes.Get(symbol); ok {
		prevPtr = &prev
	}
	q := NextQuote(symbol, prevPtr, s.state, s.rng, now)
	s.quotes.Put(symbol, q)

	quoteEv := &event.QuoteEvent{BaseEvent: event.BaseEvent{Ts: now}, Quote: q}
	if s.rng.Float64() >= e.cfg.TradeProbability {
		return quoteEv, nil, false
	}
	trade := NextTrade(&q, s.rng, now)
	return quoteEv, &event.TradeEvent{BaseEvent: event.BaseEvent{Ts: now}, Trade: trade}, true
}

// Close marks the stream terminal before exhaustion.
func (st *Stream) Close() { st.closed = true }

// Remaining returns how many items the stream may still produce.
func (st *Stream) Remaining() int {
	if st.closed {
		return 0
	}
	return st.target - st.produced
}

// NextBatch drains a fresh bounded stream to completion and returns all
// produced events. It is the one-call form of the pull interface.
func (e *Engine) NextBatch(ctx context.Context, count, chunkSize int, delay time.Duration) ([]event.Event, error) {
	st := e.NewStream(count, chunkSize, delay)
	out := make([]event.Event, 0, count)
	for {
		chunk, err := st.Next(ctx)
		if err != nil {
			if err == domain.ErrStreamClosed {
				return out, nil
			}
			return out, err
		}
		out = append(out, chunk...)
	}
}
