package event

import (
	"sync"
	"sync/atomic"
)

// Broadcaster fans events out to any number of subscribers. The engine holds
// one by composition; it does not inherit emitter behavior.
//
// Publish never blocks: a subscriber whose buffer is full loses the event and
// the drop counter is incremented. Size buffers for the expected burst.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	closed  bool
	dropped atomic.Uint64
}

// Subscription is one consumer's view of the stream.
type Subscription struct {
	ch      chan Event
	b       *Broadcaster
	once    sync.Once
	onClose func()
}

// Events returns the receive channel. It is closed when the subscription or
// the broadcaster closes.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close detaches the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.b.remove(s)
	s.shutdown()
}

// shutdown closes the channel and fires the close hook exactly once,
// whichever side (subscriber or broadcaster) gets there first.
func (s *Subscription) shutdown() {
	s.once.Do(func() {
		close(s.ch)
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new consumer with the given channel buffer. An
// optional onClose hook runs once when the subscription ends, from either
// side; owners use it to release per-subscriber resources.
func (b *Broadcaster) Subscribe(buffer int, onClose ...func()) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &Subscription{ch: make(chan Event, buffer), b: b}
	if len(onClose) > 0 {
		sub.onClose = onClose[0]
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		// Closed broadcaster yields an immediately-closed subscription.
		sub.shutdown()
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// Publish delivers ev to every subscriber, dropping for slow ones.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close detaches and closes every subscription. Publish becomes a no-op.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		sub.shutdown()
		delete(b.subs, sub)
	}
}

// Dropped returns the number of events lost to slow subscribers.
func (b *Broadcaster) Dropped() uint64 { return b.dropped.Load() }

// Len returns the current subscriber count.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
