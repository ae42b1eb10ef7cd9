package broker

import (
	"context"
	"sync"

	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/metrics"
)

// EntityUpdate is the domain value published on every entity store
// mutation; an empty Data map with IsDeleted set represents a deletion,
// per spec.md §4.9.
type EntityUpdate struct {
	HashedID  felt.Felt
	Keys      []felt.Felt
	ModelName string
	Data      map[string]interface{}
	IsDeleted bool
}

// EntityMessage is what an entity subscriber's sink receives: the
// subscription's own id on every message (including the initial sentinel)
// so a client can distinguish handshake from delta on a shared stream.
type EntityMessage struct {
	SubscriptionID uint64
	Entity         *EntityUpdate // nil on the initial sentinel
}

type entitySubscriber struct {
	id     uint64
	filter *EntityFilter
	sink   chan EntityMessage
	done   <-chan struct{}
}

// EntityBroker is the entity-stream subscription manager of C9.
type EntityBroker struct {
	mu          sync.RWMutex
	subscribers map[uint64]*entitySubscriber
	channelSize int
}

// NewEntityBroker constructs an empty EntityBroker; channelSize bounds each
// subscriber's sink depth (spec.md's SUBSCRIPTION_CHANNEL_SIZE).
func NewEntityBroker(channelSize int) *EntityBroker {
	return &EntityBroker{subscribers: make(map[uint64]*entitySubscriber), channelSize: channelSize}
}

// AddSubscriber registers a new subscriber and returns its id and receive
// channel. done should be closed by the caller when it stops reading (e.g.
// on client disconnect); the broker uses it to avoid blocking forever on a
// dead consumer. An initial sentinel message is sent immediately so a
// blocking client handshake unblocks, per spec.md §4.9.
func (b *EntityBroker) AddSubscriber(filter *EntityFilter, done <-chan struct{}) (uint64, <-chan EntityMessage) {
	id := newSubscriptionID()
	sink := make(chan EntityMessage, b.channelSize)
	sink <- EntityMessage{SubscriptionID: id}

	b.mu.Lock()
	b.subscribers[id] = &entitySubscriber{id: id, filter: filter, sink: sink, done: done}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SubscriberCountGauge.Update(int64(n))
	return id, sink
}

// UpdateSubscriber replaces id's filter while preserving its sink.
func (b *EntityBroker) UpdateSubscriber(id uint64, filter *EntityFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subscribers[id]; ok {
		s.filter = filter
	}
}

// RemoveSubscriber drops id's entry, if present.
func (b *EntityBroker) RemoveSubscriber(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
	metrics.SubscriberCountGauge.Update(int64(len(b.subscribers)))
}

// Publish delivers upd to every subscriber whose filter matches, blocking
// on each send to back-pressure the publisher (spec.md §4.9's entity
// delivery policy). A subscriber whose done channel has fired is scheduled
// for removal instead of receiving the update.
func (b *EntityBroker) Publish(ctx context.Context, upd EntityUpdate) {
	b.mu.RLock()
	var toRemove []uint64
	for id, s := range b.subscribers {
		if !matchEntity(upd.HashedID, upd.Keys, upd.ModelName, s.filter) {
			continue
		}
		msg := EntityMessage{SubscriptionID: id, Entity: &upd}
		select {
		case s.sink <- msg:
		case <-s.done:
			toRemove = append(toRemove, id)
		case <-ctx.Done():
			b.mu.RUnlock()
			return
		}
	}
	b.mu.RUnlock()

	if len(toRemove) == 0 {
		return
	}
	b.mu.Lock()
	for _, id := range toRemove {
		delete(b.subscribers, id)
	}
	metrics.SubscriberCountGauge.Update(int64(len(b.subscribers)))
	b.mu.Unlock()
}
