// Package eventbus carries console notifications (store changes, connection
// transitions, dispatch outcomes) from the service to UI-facing consumers.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// Event is an arbitrary notification published on the bus. The concrete
// payload types live in core/events.
type Event interface{}

// EventBus is a fan-out publish/subscribe bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

const defaultBuffer = 16

// Bus fans every published event out to all subscribers. Delivery is
// non-blocking: a subscriber that stops draining loses events instead of
// stalling the realtime pipeline.
type Bus struct {
	mu      sync.RWMutex
	subs    []chan Event
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

// New creates a Bus with the default per-subscriber buffer.
func New() *Bus { return NewBuffered(defaultBuffer) }

// NewBuffered creates a Bus whose subscriber channels hold up to buffer
// pending events each.
func NewBuffered(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{buffer: buffer}
}

// Publish delivers the event to every subscriber that has buffer room.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a new subscriber. The returned channel is closed on
// Unsubscribe or Close.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Dropped returns the number of events discarded because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close closes all subscriber channels; later publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
