package processor

import (
	"time"

	"github.com/dojoengine/torii-go/store"
)

// EventEmittedProcessor records a raw application-level "event emitted"
// message under the World contract, independent of the model-entity store
// path. Its task id folds in the selector plus every key so concurrent
// emissions of the same event with different keys do not serialize against
// each other unnecessarily.
type EventEmittedProcessor struct{}

func (EventEmittedProcessor) EventKey() string { return "EventEmitted" }

func (EventEmittedProcessor) Validate(ev Event) bool {
	return len(ev.Event.Keys) >= 1
}

func (EventEmittedProcessor) TaskIdentifier(ev Event) TaskID {
	parts := make([][]byte, 0, len(ev.Event.Keys))
	for _, k := range ev.Event.Keys {
		parts = append(parts, k.Bytes())
	}
	return HashTaskID(parts...)
}

func (EventEmittedProcessor) TaskDependencies(ev Event) []TaskID {
	if len(ev.Event.Keys) == 0 {
		return nil
	}
	return []TaskID{HashTaskID(ev.Event.Keys[0].Bytes())}
}

func (EventEmittedProcessor) Process(pc Context, ev Event) error {
	return pc.Executor.Send(store.Message{
		Kind: store.MsgStoreEvent,
		StoreEvent: &store.StoreEvent{
			EventID:         ev.EventID,
			Keys:            ev.Event.Keys,
			Data:            ev.Event.Data,
			TransactionHash: ev.TransactionHash,
			ExecutedAt:      time.Unix(int64(ev.BlockTimestamp), 0).UTC(),
		},
	})
}
