// Package pubsub provides a small generic publish/subscribe broker used
// to fan session notifications out to observers (UI shells, loggers,
// tests) without coupling the core to any of them.
package pubsub

import (
	"context"
	"sync"
	"time"
)

// EventType names the kind of event being published. The concrete values
// are defined by the publishing package.
type EventType string

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// DefaultBuffer is the per-subscriber channel buffer.
const DefaultBuffer = 64

// Broker fans events out to any number of subscribers. Publishing never
// blocks: events are dropped for subscribers whose buffer is full.
type Broker[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event[T]
	closed bool
}

// NewBroker creates a broker with the default subscriber buffer.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subs: make(map[int]chan Event[T])}
}

// Subscribe registers a new subscriber and returns its receive channel.
// The subscription is removed and the channel closed when ctx is
// cancelled. Subscribing to a closed broker yields a closed channel.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event[T], DefaultBuffer)
	b.subs[id] = ch

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed {
			return
		}
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}()

	return ch
}

// Publish delivers an event to every current subscriber. Subscribers that
// cannot keep up lose events rather than blocking the publisher.
func (b *Broker[T]) Publish(t EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	ev := Event[T]{Type: t, Payload: payload, Timestamp: time.Now()}
	for _, sub := range b.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

// Close shuts the broker down and closes all subscriber channels. Close
// is idempotent and publishing after Close is a no-op.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Broker[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
