// Package cursor models the persisted progress pointer (C2) described in
// spec.md §4.2: a global head plus a per-contract (last_tx, count) map.
// Updates are buffered and only become visible to readers once the write
// executor (package store) applies them as part of a tick's flush.
package cursor

import "github.com/dojoengine/torii-go/felt"

// ContractCursor is the per-contract progress pointer.
type ContractCursor struct {
	LastTxHash felt.Felt
	TxCount    uint64
}

// Cursors is the full committed progress snapshot read at the top of every
// engine tick.
type Cursors struct {
	Head                uint64
	HasHead             bool
	LastTimestamp       uint64
	LastPendingTx       *felt.Felt
	PerContract         map[felt.Felt]ContractCursor
}

// Store is the read side of C2. Writes go through the executor (package
// store) as an UpdateCursors message so that cursor changes share the same
// transactional/rollback guarantee as every other write in a tick.
type Store interface {
	Cursors() (Cursors, error)
}
