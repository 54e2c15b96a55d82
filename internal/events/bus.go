// internal/events/bus.go
package events

import "sync"

// Collection names published on the bus. A publish means "this collection
// was written; re-read it" — events carry no payload on purpose, so a slow
// observer can never see a partial write.
const (
	CollectionUsers     = "users"
	CollectionOrders    = "orders"
	CollectionChats     = "chats"
	CollectionDiscounts = "discounts"
)

// Event is a store-changed notification.
type Event struct {
	Collection string
}

// Bus fans store-changed events out to every subscriber. Publishing never
// blocks the writer: a subscriber whose buffer is full misses the event and
// catches up on its next re-read.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new observer and returns its event channel.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch
}

// Unsubscribe removes the observer and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish notifies all subscribers that a collection was written.
func (b *Bus) Publish(collection string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- Event{Collection: collection}:
		default:
		}
	}
}
