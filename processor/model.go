package processor

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/dojoengine/torii-go/cache"
	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/internal/xerrors"
	"github.com/dojoengine/torii-go/store"
)

// RegisterModelProcessor handles the World contract's model-registration
// event: decodes a (selector, namespace, name, schema) tuple from the
// event's keys/data and enqueues a RegisterModel write. It has no
// dependencies since a model must exist before any Store* event referencing
// it can run.
type RegisterModelProcessor struct{}

func (RegisterModelProcessor) EventKey() string { return "RegisterModel" }

func (RegisterModelProcessor) Validate(ev Event) bool {
	return len(ev.Event.Keys) >= 4 && len(ev.Event.Data) >= 1
}

func (RegisterModelProcessor) TaskIdentifier(ev Event) TaskID {
	return HashTaskID(ev.Event.Keys[1].Bytes())
}

func (RegisterModelProcessor) TaskDependencies(ev Event) []TaskID { return nil }

func (RegisterModelProcessor) Process(pc Context, ev Event) error {
	selector := ev.Event.Keys[1]
	name, err := felt.ShortString(ev.Event.Keys[2])
	if err != nil {
		return xerrors.Wrap(xerrors.KindParse, errors.Wrap(err, "decoding model name"))
	}
	namespace, err := felt.ShortString(ev.Event.Keys[3])
	if err != nil {
		return xerrors.Wrap(xerrors.KindParse, errors.Wrap(err, "decoding model namespace"))
	}
	schema := feltsToBytes(ev.Event.Data)

	if err := pc.Executor.Send(store.Message{
		Kind: store.MsgRegisterModel,
		RegisterModel: &store.RegisterModel{
			Selector:  selector,
			Namespace: namespace,
			Name:      name,
			Schema:    schema,
		},
	}); err != nil {
		return err
	}
	pc.Cache.InvalidateModel(selector)
	return nil
}

func feltsToBytes(fs []felt.Felt) []byte {
	out := make([]byte, 0, len(fs)*felt.Size)
	for _, f := range fs {
		out = append(out, f.Bytes()...)
	}
	return out
}

// storeRecordIdentifier is the shared id/dep derivation for
// StoreSet/Update/DelRecord and StoreUpdateMember: id hashes
// (model_selector, entity_id[, member_selector]); dependency is always the
// model's own registration id, per spec.md §4.5.
func storeRecordIdentifier(modelSelector, entityID felt.Felt, extra ...felt.Felt) TaskID {
	parts := [][]byte{modelSelector.Bytes(), entityID.Bytes()}
	for _, e := range extra {
		parts = append(parts, e.Bytes())
	}
	return HashTaskID(parts...)
}

func modelDependency(modelSelector felt.Felt) []TaskID {
	return []TaskID{HashTaskID(modelSelector.Bytes())}
}

// StoreSetRecordProcessor handles a model entity upsert.
type StoreSetRecordProcessor struct{}

func (StoreSetRecordProcessor) EventKey() string { return "StoreSetRecord" }

func (StoreSetRecordProcessor) Validate(ev Event) bool {
	return len(ev.Event.Keys) >= 3
}

func (StoreSetRecordProcessor) TaskIdentifier(ev Event) TaskID {
	return storeRecordIdentifier(ev.Event.Keys[1], ev.Event.Keys[2])
}

func (StoreSetRecordProcessor) TaskDependencies(ev Event) []TaskID {
	return modelDependency(ev.Event.Keys[1])
}

func (StoreSetRecordProcessor) Process(pc Context, ev Event) error {
	modelSelector, entityID := ev.Event.Keys[1], ev.Event.Keys[2]
	schema, err := pc.Cache.Model(modelSelector)
	if err != nil {
		return errors.Wrap(err, "loading model schema")
	}
	data, err := decodeModelData(schema, ev.Event.Data)
	if err != nil {
		return errors.Wrap(err, "decoding entity data")
	}
	return pc.Executor.Send(store.Message{
		Kind: store.MsgSetEntity,
		SetEntity: &store.SetEntity{
			EntityID:      entityID,
			ModelSelector: modelSelector,
			Keys:          ev.Event.Keys[2:],
			Data:          data,
			EventID:       ev.EventID,
			ExecutedAt:    time.Unix(int64(ev.BlockTimestamp), 0).UTC(),
		},
	})
}

// StoreUpdateRecordProcessor handles a partial model entity update; it
// shares StoreSetRecord's semantics at the write-message level since the
// sink applies both as an upsert (spec.md does not distinguish their
// persisted effect, only their wire event).
type StoreUpdateRecordProcessor struct{ StoreSetRecordProcessor }

func (StoreUpdateRecordProcessor) EventKey() string { return "StoreUpdateRecord" }

// StoreDelRecordProcessor handles a model entity deletion.
type StoreDelRecordProcessor struct{}

func (StoreDelRecordProcessor) EventKey() string { return "StoreDelRecord" }

func (StoreDelRecordProcessor) Validate(ev Event) bool {
	return len(ev.Event.Keys) >= 3
}

func (StoreDelRecordProcessor) TaskIdentifier(ev Event) TaskID {
	return storeRecordIdentifier(ev.Event.Keys[1], ev.Event.Keys[2])
}

func (StoreDelRecordProcessor) TaskDependencies(ev Event) []TaskID {
	return modelDependency(ev.Event.Keys[1])
}

func (StoreDelRecordProcessor) Process(pc Context, ev Event) error {
	modelSelector, entityID := ev.Event.Keys[1], ev.Event.Keys[2]
	return pc.Executor.Send(store.Message{
		Kind: store.MsgDeleteEntity,
		DeleteEntity: &store.DeleteEntity{
			EntityID:      entityID,
			ModelSelector: modelSelector,
			EventID:       ev.EventID,
			ExecutedAt:    time.Unix(int64(ev.BlockTimestamp), 0).UTC(),
		},
	})
}

// StoreUpdateMemberProcessor handles a single-field update on a model
// entity; its task id additionally folds in the member selector, so updates
// to different members of the same entity get different ids and do not
// serialize against each other, while updates to the same member do, per
// spec.md §4.5.
type StoreUpdateMemberProcessor struct{}

func (StoreUpdateMemberProcessor) EventKey() string { return "StoreUpdateMember" }

func (StoreUpdateMemberProcessor) Validate(ev Event) bool {
	return len(ev.Event.Keys) >= 4
}

func (StoreUpdateMemberProcessor) TaskIdentifier(ev Event) TaskID {
	return storeRecordIdentifier(ev.Event.Keys[1], ev.Event.Keys[2], ev.Event.Keys[3])
}

func (StoreUpdateMemberProcessor) TaskDependencies(ev Event) []TaskID {
	return modelDependency(ev.Event.Keys[1])
}

func (StoreUpdateMemberProcessor) Process(pc Context, ev Event) error {
	modelSelector, entityID := ev.Event.Keys[1], ev.Event.Keys[2]
	schema, err := pc.Cache.Model(modelSelector)
	if err != nil {
		return errors.Wrap(err, "loading model schema")
	}
	data, err := decodeModelData(schema, ev.Event.Data)
	if err != nil {
		return errors.Wrap(err, "decoding member data")
	}
	return pc.Executor.Send(store.Message{
		Kind: store.MsgSetEntity,
		SetEntity: &store.SetEntity{
			EntityID:      entityID,
			ModelSelector: modelSelector,
			Keys:          ev.Event.Keys[2:3],
			Data:          data,
			EventID:       ev.EventID,
			ExecutedAt:    time.Unix(int64(ev.BlockTimestamp), 0).UTC(),
		},
	})
}

// decodeModelData maps raw felt data positionally: each value is stored as
// hex under "$0", "$1", ..., and the model's name under "$model". It does
// not decode the schema's Cairo types (nested structs, arrays, enums), and
// the reference sqlstore sink does not persist this map.
func decodeModelData(schema cache.ModelSchema, data []felt.Felt) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(data))
	for i, v := range data {
		out[fmt.Sprintf("$%d", i)] = v.Hex()
	}
	out["$model"] = schema.Name
	return out, nil
}
