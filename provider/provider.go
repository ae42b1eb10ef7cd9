package provider

import (
	"context"

	"github.com/dojoengine/torii-go/felt"
)

// Provider is the RPC surface the engine consumes, per spec.md §6. An
// implementation talks to the chain node; RPCClient (rpc.go) is this
// package's JSON-RPC one. The package also holds the chunked-batch helper
// every caller needs (fetch.Stage being the main one).
type Provider interface {
	BlockHashAndNumber(ctx context.Context) (BlockHashAndNumber, error)
	GetBlockWithTxHashes(ctx context.Context, id BlockID) (Block, error)
	GetBlockWithReceipts(ctx context.Context, id BlockID) (Block, error)
	Call(ctx context.Context, req CallRequest) ([]felt.Felt, error)

	// BatchRequests issues a single homogeneous-or-heterogeneous batch,
	// returning one response per request in request order (spec.md §4.1).
	BatchRequests(ctx context.Context, reqs []BatchRequest) ([]BatchResponse, error)
}
