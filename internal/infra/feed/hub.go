package feed

import (
	"sync"

	"dutchswap/internal/event"
)

// Subscription is one consumer's buffered event channel.
type Subscription struct {
	ch chan event.Event
}

// C returns the receive side of the subscription.
func (s *Subscription) C() <-chan event.Event {
	return s.ch
}

// Hub fans engine events out to feed subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event rather than stalling
// a settlement. Implements event.Sink.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new consumer with the given buffer size.
func (h *Hub) Subscribe(buffer int) *Subscription {
	sub := &Subscription{ch: make(chan event.Event, buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a consumer and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

// Publish delivers an event to every subscriber with buffer room.
func (h *Hub) Publish(ev event.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
