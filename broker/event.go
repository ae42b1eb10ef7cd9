package broker

import (
	"sync"

	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/internal/xlog"
	"github.com/dojoengine/torii-go/metrics"
)

var logger = xlog.NewModuleLogger("broker")

// EventUpdate is the domain value published for every indexed raw event.
type EventUpdate struct {
	Keys            []felt.Felt
	Data            []felt.Felt
	TransactionHash felt.Felt
}

// EventMessage is what an event subscriber's sink receives.
type EventMessage struct {
	SubscriptionID uint64
	Event          *EventUpdate
}

type eventSubscriber struct {
	id     uint64
	filter *EventFilter
	sink   chan EventMessage
}

// EventBroker is the event-stream subscription manager of C9. Unlike
// EntityBroker it never blocks the publisher: a slow subscriber is
// evicted instead, per spec.md §4.9's non-blocking try_send policy.
type EventBroker struct {
	mu          sync.RWMutex
	subscribers map[uint64]*eventSubscriber
	channelSize int
}

// NewEventBroker constructs an empty EventBroker.
func NewEventBroker(channelSize int) *EventBroker {
	return &EventBroker{subscribers: make(map[uint64]*eventSubscriber), channelSize: channelSize}
}

// AddSubscriber registers a new subscriber, sending the initial sentinel
// message immediately, mirroring EntityBroker.AddSubscriber.
func (b *EventBroker) AddSubscriber(filter *EventFilter) (uint64, <-chan EventMessage) {
	id := newSubscriptionID()
	sink := make(chan EventMessage, b.channelSize)
	sink <- EventMessage{SubscriptionID: id}

	b.mu.Lock()
	b.subscribers[id] = &eventSubscriber{id: id, filter: filter, sink: sink}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.SubscriberCountGauge.Update(int64(n))
	return id, sink
}

// UpdateSubscriber replaces id's filter while preserving its sink.
func (b *EventBroker) UpdateSubscriber(id uint64, filter *EventFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subscribers[id]; ok {
		s.filter = filter
	}
}

// RemoveSubscriber drops id's entry, if present.
func (b *EventBroker) RemoveSubscriber(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
	metrics.SubscriberCountGauge.Update(int64(len(b.subscribers)))
}

// Publish delivers upd to every matching subscriber via a non-blocking
// send; a full or closed sink declares the subscriber "too slow" and
// schedules it for removal, per spec.md §4.9.
func (b *EventBroker) Publish(upd EventUpdate) {
	b.mu.RLock()
	var toRemove []uint64
	for id, s := range b.subscribers {
		if !matchEvent(upd.Keys, s.filter) {
			continue
		}
		if !trySend(s.sink, EventMessage{SubscriptionID: id, Event: &upd}) {
			toRemove = append(toRemove, id)
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
	metrics.SlowSubscriberCounter.Inc(int64(len(toRemove)))
	b.mu.Unlock()
	logger.Trace("evicted slow event subscribers", "count", len(toRemove))
}

// trySend attempts a non-blocking send, reporting false if the channel is
// full. A send to a closed channel panics in Go rather than returning an
// error as it would in the original's mpsc sender; recover and treat it the
// same way spec.md treats a closed sink: schedule for removal.
func trySend(ch chan EventMessage, msg EventMessage) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
