package processor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/provider"
)

var (
	testModelSelector = felt.MustFromHex("0xaaaa")
	testEntityID      = felt.MustFromHex("0xbbbb")
	testMemberSelector = felt.MustFromHex("0xcccc")
)

func TestStoreSetRecordTaskDependsOnItsModel(t *testing.T) {
	var p StoreSetRecordProcessor
	ev := Event{Event: eventWithKeys(SelectorStoreSetRecord, testModelSelector, testEntityID)}

	deps := p.TaskDependencies(ev)
	require.Equal(t, []TaskID{HashTaskID(testModelSelector.Bytes())}, deps)
}

func TestStoreSetAndDelShareTaskIdentifierForSameEntity(t *testing.T) {
	var set StoreSetRecordProcessor
	var del StoreDelRecordProcessor
	ev := Event{Event: eventWithKeys(SelectorStoreSetRecord, testModelSelector, testEntityID)}

	require.Equal(t, set.TaskIdentifier(ev), del.TaskIdentifier(ev),
		"a set and a del on the same (model, entity) must serialize onto the same slot")
}

func TestStoreUpdateMemberTaskIdentifierFoldsInMemberSelector(t *testing.T) {
	var p StoreUpdateMemberProcessor
	evA := Event{Event: eventWithKeys(SelectorStoreUpdateMember, testModelSelector, testEntityID, testMemberSelector)}
	evB := Event{Event: eventWithKeys(SelectorStoreUpdateMember, testModelSelector, testEntityID, felt.MustFromHex("0xdddd"))}

	require.NotEqual(t, p.TaskIdentifier(evA), p.TaskIdentifier(evB),
		"two different member selectors on the same entity must not collide")
}

func TestStoreUpdateMemberDependsOnlyOnModel(t *testing.T) {
	var p StoreUpdateMemberProcessor
	ev := Event{Event: eventWithKeys(SelectorStoreUpdateMember, testModelSelector, testEntityID, testMemberSelector)}
	require.Equal(t, []TaskID{HashTaskID(testModelSelector.Bytes())}, p.TaskDependencies(ev))
}

func TestRegisterModelHasNoDependencies(t *testing.T) {
	var p RegisterModelProcessor
	ev := Event{Event: eventWithKeys(SelectorRegisterModel, testModelSelector, felt.MustFromHex("0x6e616d65"), felt.MustFromHex("0x6e73"))}
	require.Nil(t, p.TaskDependencies(ev))
}

func eventWithKeys(keys ...felt.Felt) provider.Event {
	return provider.Event{Keys: keys}
}
