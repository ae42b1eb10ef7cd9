package processor

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/dojoengine/torii-go/contract"
	"github.com/dojoengine/torii-go/felt"
)

// dispatchKey is the (contract kind, event selector) pair the registry is
// keyed by. The World contract multiplexes several model/store selectors;
// token contracts each expose one transfer selector.
type dispatchKey struct {
	kind     contract.Kind
	selector felt.Felt
}

// Registry is the processor lookup table of spec.md §4.5. Processors are
// registered under a dispatch key in the order a reader should try them;
// dispatch picks the first whose Validate(ev) returns true, falling back to
// a catch-all when none match or none are registered for the key.
type Registry struct {
	byKey    map[dispatchKey][]Processor
	blocks   []BlockProcessor
	txs      []TransactionProcessor
	catchAll Processor
}

// NewRegistry constructs an empty Registry with CatchAll{} as the fallback.
func NewRegistry() *Registry {
	return &Registry{
		byKey:    make(map[dispatchKey][]Processor),
		catchAll: CatchAll{},
	}
}

// Register adds p as a candidate for (kind, selector), appended after any
// processor already registered for that key.
func (r *Registry) Register(kind contract.Kind, selector felt.Felt, p Processor) {
	key := dispatchKey{kind: kind, selector: selector}
	r.byKey[key] = append(r.byKey[key], p)
}

// RegisterBlockProcessor adds a processor invoked once per block.
func (r *Registry) RegisterBlockProcessor(p BlockProcessor) {
	r.blocks = append(r.blocks, p)
}

// RegisterTransactionProcessor adds a processor invoked once per
// transaction when the TRANSACTIONS flag is enabled.
func (r *Registry) RegisterTransactionProcessor(p TransactionProcessor) {
	r.txs = append(r.txs, p)
}

// BlockProcessors returns the registered per-block processors.
func (r *Registry) BlockProcessors() []BlockProcessor { return r.blocks }

// TransactionProcessors returns the registered per-transaction processors.
func (r *Registry) TransactionProcessors() []TransactionProcessor { return r.txs }

// Dispatch returns the processor that should handle ev: the first
// registered candidate for (ev.ContractKind, first key) whose Validate(ev)
// passes, or the catch-all if none do (including when no candidates are
// registered at all).
func (r *Registry) Dispatch(ev Event) Processor {
	if len(ev.Event.Keys) == 0 {
		return r.catchAll
	}
	key := dispatchKey{kind: ev.ContractKind, selector: ev.Event.Keys[0]}
	for _, p := range r.byKey[key] {
		if p.Validate(ev) {
			return p
		}
	}
	return r.catchAll
}

// HashTaskID derives a stable 64-bit task id from a variadic list of
// byte-slice components, the same construction store_del_record.rs uses to
// hash (model_selector, entity_id) into a task identifier: sha256 the
// concatenation and take the first 8 bytes as a big-endian uint64.
func HashTaskID(parts ...[]byte) TaskID {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
