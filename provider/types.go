// Package provider is the facade over the chain node's RPC surface (C1):
// single and batched calls for block/event/transaction data. It mirrors the
// calling convention the teacher uses throughout client/bridge_client.go —
// a thin method per RPC, delegating to a generic CallContext — except here
// the calls are grouped behind one interface so the fetch stage (package
// fetch) can batch them uniformly.
package provider

import (
	"github.com/dojoengine/torii-go/felt"
)

// BlockTag selects a symbolic block instead of a concrete number.
type BlockTag string

const (
	BlockTagLatest  BlockTag = "latest"
	BlockTagPending BlockTag = "pending"
)

// BlockID is either a concrete block number or a BlockTag; exactly one of
// the two is set.
type BlockID struct {
	Number *uint64
	Tag    BlockTag
}

// BlockIDNumber builds a concrete-number BlockID.
func BlockIDNumber(n uint64) BlockID { return BlockID{Number: &n} }

// BlockIDTag builds a symbolic BlockID.
func BlockIDTag(t BlockTag) BlockID { return BlockID{Tag: t} }

// BlockHashAndNumber is the response of block_hash_and_number.
type BlockHashAndNumber struct {
	BlockHash   felt.Felt
	BlockNumber uint64
}

// Event is a single emitted event as seen inside a transaction's receipt.
type Event struct {
	FromAddress felt.Felt
	Keys        []felt.Felt
	Data        []felt.Felt
}

// EmittedEvent is an Event plus the page-level metadata getEvents returns.
type EmittedEvent struct {
	Event
	BlockNumber     *uint64
	BlockHash       *felt.Felt
	TransactionHash felt.Felt
}

// EventFilter selects which events getEvents returns.
type EventFilter struct {
	FromBlock BlockID
	ToBlock   BlockID
	Address   *felt.Felt
	Keys      [][]felt.Felt
}

// EventsPage is one page of a paginated getEvents response.
type EventsPage struct {
	Events            []EmittedEvent
	ContinuationToken *string
}

// GetEventsRequest is the paginated request shape for getEvents.
type GetEventsRequest struct {
	Filter            EventFilter
	ChunkSize         uint64
	ContinuationToken *string
}

// Transaction is a minimal transaction body; only the fields the engine
// reads are modeled. Events is populated when the transaction was obtained
// via getBlockWithReceipts (the pending-block path); it is empty when
// obtained via getTransactionByHash.
type Transaction struct {
	TransactionHash felt.Felt
	Calldata        []felt.Felt
	Events          []Event
}

// Block carries the fields the fetch stage needs out of
// getBlockWithTxHashes / getBlockWithReceipts.
type Block struct {
	BlockNumber uint64
	BlockHash   felt.Felt
	ParentHash  felt.Felt
	Timestamp   uint64
	IsPending   bool
	// TxHashes is populated by getBlockWithTxHashes.
	TxHashes []felt.Felt
	// Transactions is populated by getBlockWithReceipts (pending block path).
	Transactions []Transaction
}

// CallRequest is a single contract view call.
type CallRequest struct {
	ContractAddress felt.Felt
	EntryPoint      felt.Felt
	Calldata        []felt.Felt
	BlockID         BlockID
}

// RequestKind discriminates BatchRequest/BatchResponse payloads.
type RequestKind uint8

const (
	ReqGetEvents RequestKind = iota
	ReqGetTransactionByHash
	ReqGetBlockWithTxHashes
	ReqCall
)

// BatchRequest is one homogeneous-per-call-but-heterogeneous-per-batch
// element of a batch_requests call. Exactly one of the typed fields is set,
// selected by Kind.
type BatchRequest struct {
	Kind RequestKind

	GetEvents            *GetEventsRequest
	GetTransactionByHash *felt.Felt
	GetBlockWithTxHashes *BlockID
	Call                 *CallRequest
}

// BatchResponse is the typed counterpart of BatchRequest. The provider MUST
// preserve response order == request order (spec.md §4.1).
type BatchResponse struct {
	Kind RequestKind

	GetEvents            *EventsPage
	GetTransactionByHash *Transaction
	GetBlockWithTxHashes *Block
	Call                 []felt.Felt

	// Err is set when the node returned a per-item protocol error inside an
	// otherwise successful batch (spec.md §7: "Unexpected response variant"
	// is a protocol error, never a process abort).
	Err error
}
