// Package event fans ingestion, alert and block events out to live
// subscribers. Delivery is best-effort and at-most-once per subscriber:
// a slow or dead subscriber never blocks the publisher.
package event

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"ShieldAI/internal/model"
)

// Subscription is one live event feed. Events arrive on Events() in
// publish order; when the bounded queue overflows the oldest queued
// event is dropped, so a subscriber that cannot keep up silently misses
// events instead of slowing the pipeline.
type Subscription struct {
	ID string

	ch      chan model.Event
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Uint64

	b *Broadcaster
}

// Events returns the receive side of the subscription queue.
func (s *Subscription) Events() <-chan model.Event {
	return s.ch
}

// Done is closed when the subscription has been cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped returns how many events this subscriber has missed.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close cancels the subscription. Safe to call more than once; a
// disconnected subscriber that never calls Close is reclaimed lazily by
// the next publishes once its transport handler marks it closed.
func (s *Subscription) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
		s.b.remove(s.ID)
	}
}

// Broadcaster is the fan-out hub. Subscribe and Unsubscribe may run
// concurrently with Publish; each publish works on a snapshot of the
// subscriber set, so subscribers arriving or leaving mid-broadcast are
// tolerated.
type Broadcaster struct {
	mu        sync.RWMutex
	subs      map[string]*Subscription
	queueSize int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber
// queue size.
func NewBroadcaster(queueSize int) *Broadcaster {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Broadcaster{
		subs:      make(map[string]*Subscription),
		queueSize: queueSize,
	}
}

// Subscribe registers a new live subscriber.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		ID:   uuid.NewString(),
		ch:   make(chan model.Event, b.queueSize),
		done: make(chan struct{}),
		b:    b,
	}
	b.mu.Lock()
	b.subs[sub.ID] = sub
	b.mu.Unlock()
	return sub
}

// Unsubscribe cancels a subscription by id.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.RLock()
	sub, ok := b.subs[id]
	b.mu.RUnlock()
	if ok {
		sub.Close()
	}
}

// Publish delivers the event to every live subscriber without ever
// blocking. A full queue drops its oldest entry; a closed subscription
// is skipped and reclaimed.
func (b *Broadcaster) Publish(ev model.Event) {
	b.mu.RLock()
	snapshot := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	for _, sub := range snapshot {
		if sub.closed.Load() {
			b.remove(sub.ID)
			continue
		}
		select {
		case sub.ch <- ev:
			continue
		default:
		}
		// Queue full: drop the oldest queued event to make room.
		select {
		case <-sub.ch:
			sub.dropped.Add(1)
		default:
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok && sub.dropped.Load() > 0 {
		log.Printf("Subscriber %s left after missing %d event(s)", id, sub.dropped.Load())
	}
}
