package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dojoengine/torii-go/felt"
)

func TestEntityBrokerSendsInitialSentinel(t *testing.T) {
	b := NewEntityBroker(4)
	id, sink := b.AddSubscriber(nil, make(chan struct{}))
	msg := <-sink
	require.Equal(t, id, msg.SubscriptionID)
	require.Nil(t, msg.Entity)
}

func TestEntityBrokerFiltersByHashedID(t *testing.T) {
	b := NewEntityBroker(4)
	wanted := felt.MustFromHex("0x1")
	filter := &EntityFilter{Clauses: []EntityClause{{HashedIDs: []felt.Felt{wanted}}}}
	_, sink := b.AddSubscriber(filter, make(chan struct{}))
	<-sink // sentinel

	b.Publish(context.Background(), EntityUpdate{HashedID: felt.MustFromHex("0x2")})
	b.Publish(context.Background(), EntityUpdate{HashedID: wanted})

	select {
	case msg := <-sink:
		require.NotNil(t, msg.Entity)
		require.Equal(t, wanted, msg.Entity.HashedID)
	case <-time.After(time.Second):
		t.Fatal("expected the matching update to arrive")
	}

	select {
	case msg := <-sink:
		t.Fatalf("unexpected second message: %+v", msg)
	default:
	}
}

func TestEntityBrokerPublishBlocksUntilDrainedOrDone(t *testing.T) {
	b := NewEntityBroker(1)
	done := make(chan struct{})
	_, sink := b.AddSubscriber(nil, done)
	<-sink // drain the sentinel

	b.Publish(context.Background(), EntityUpdate{HashedID: felt.MustFromHex("0x0")}) // fills the size-1 buffer

	publishReturned := make(chan struct{})
	go func() {
		b.Publish(context.Background(), EntityUpdate{HashedID: felt.MustFromHex("0x1")})
		close(publishReturned)
	}()

	select {
	case <-publishReturned:
		t.Fatal("Publish must block while the subscriber has not drained and done is open")
	case <-time.After(50 * time.Millisecond):
	}

	close(done)
	select {
	case <-publishReturned:
	case <-time.After(time.Second):
		t.Fatal("Publish must unblock once done fires")
	}
}

func TestEntityBrokerPublishUnblocksOnContextCancel(t *testing.T) {
	b := NewEntityBroker(1)
	_, sink := b.AddSubscriber(nil, make(chan struct{}))
	<-sink
	b.Publish(context.Background(), EntityUpdate{}) // fills the size-1 buffer

	ctx, cancel := context.WithCancel(context.Background())
	publishReturned := make(chan struct{})
	go func() {
		b.Publish(ctx, EntityUpdate{})
		close(publishReturned)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-publishReturned:
	case <-time.After(time.Second):
		t.Fatal("Publish must unblock on context cancellation")
	}
}

func TestEntityBrokerUpdateAndRemoveSubscriber(t *testing.T) {
	b := NewEntityBroker(4)
	id, sink := b.AddSubscriber(nil, make(chan struct{}))
	<-sink

	restrictive := &EntityFilter{Clauses: []EntityClause{{ModelNames: []string{"DoesNotExist"}}}}
	b.UpdateSubscriber(id, restrictive)
	b.Publish(context.Background(), EntityUpdate{ModelName: "Position"})
	select {
	case <-sink:
		t.Fatal("updated filter should have excluded this update")
	default:
	}

	b.RemoveSubscriber(id)
	b.Publish(context.Background(), EntityUpdate{ModelName: "Position"})
	select {
	case <-sink:
		t.Fatal("removed subscriber must not receive further updates")
	default:
	}
}
