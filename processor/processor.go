// Package processor implements the processor registry (C5): typed handlers
// for (contract_kind, event_selector) pairs, dispatch in registration
// order with validate()-based selection, and a catch-all fallback, per
// spec.md §4.5.
package processor

import (
	"context"

	"github.com/dojoengine/torii-go/cache"
	"github.com/dojoengine/torii-go/contract"
	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/internal/xlog"
	"github.com/dojoengine/torii-go/provider"
	"github.com/dojoengine/torii-go/store"
)

var logger = xlog.NewModuleLogger("processor")

// TaskID is the 64-bit task identifier processors derive from an event;
// equal ids collapse onto the same serialized slot (spec.md §3).
type TaskID = uint64

// Context bundles the dependencies a Processor needs to do its work,
// standing in for the original's (world, writer, config) triple threaded
// through every processor's process() call.
type Context struct {
	Ctx       context.Context
	Provider  provider.Provider
	Executor  *store.Executor
	Cache     *cache.Cache
	Metadata  MetadataFetcher
	Namespace []string // optional namespace allow-list, empty = all
}

// MetadataFetcher resolves a token_uri-style URI (https, ipfs://, or a
// data: URI) into the raw off-chain metadata bytes, degrading to nil on any
// failure per spec.md §7. Package metadata provides the concrete
// fasthttp/goleveldb-backed implementation; processors only depend on this
// interface to stay decoupled from the transport.
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Event is the (contract_kind, event) pair a processor is asked to handle.
type Event struct {
	ContractKind    contract.Kind
	ContractAddress felt.Felt
	EventID         string
	Event           provider.Event
	BlockNumber     uint64
	BlockTimestamp  uint64
	TransactionHash felt.Felt
}

// Processor is the typed handler contract of spec.md §4.5.
type Processor interface {
	// EventKey names the event type this processor handles, e.g.
	// "StoreSetRecord". The registry does not read it: dispatch is keyed on
	// the selector passed to Registry.Register.
	EventKey() string
	// Validate performs a structural sanity check; the first registered
	// processor whose Validate passes is used.
	Validate(ev Event) bool
	// TaskIdentifier derives the 64-bit id under which this event's task is
	// enqueued; equal ids are serialized onto the same queue slot.
	TaskIdentifier(ev Event) TaskID
	// TaskDependencies lists task ids that must complete before this
	// event's task may run.
	TaskDependencies(ev Event) []TaskID
	// Process performs the handler's work, enqueuing writes via
	// pc.Executor.Send.
	Process(pc Context, ev Event) error
}

// BlockProcessor runs once per block, after every transaction in the block
// has been processed (spec.md §4.8 step 2).
type BlockProcessor interface {
	ProcessBlock(pc Context, blockNumber, blockTimestamp uint64) error
}

// TransactionProcessor runs once per transaction when the TRANSACTIONS flag
// is set (spec.md §4.8 step 3).
type TransactionProcessor interface {
	ProcessTransaction(pc Context, blockNumber, blockTimestamp uint64, txHash felt.Felt, contracts map[felt.Felt]struct{}, tx provider.Transaction, touchedModels map[felt.Felt]struct{}) error
}

// CatchAll is the fallback processor tried when no selector-specific
// processor matches an event (spec.md §4.5). Its validate policy is
// source-defined (SPEC_FULL.md §13 open-question decision): it always
// accepts and only ever logs, never writes.
type CatchAll struct{}

func (CatchAll) EventKey() string { return "*" }

func (CatchAll) Validate(ev Event) bool { return true }

func (CatchAll) TaskIdentifier(ev Event) TaskID { return 0 }

func (CatchAll) TaskDependencies(ev Event) []TaskID { return nil }

func (CatchAll) Process(pc Context, ev Event) error {
	logger.Trace("unprocessed event", "key", firstKeyHex(ev.Event.Keys), "contract", ev.ContractAddress.Hex())
	return nil
}

func firstKeyHex(keys []felt.Felt) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0].Hex()
}
