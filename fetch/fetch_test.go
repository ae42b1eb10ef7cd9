package fetch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dojoengine/torii-go/contract"
	"github.com/dojoengine/torii-go/cursor"
	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/provider"
)

// fakeProvider is a scripted provider.Provider double: every method reads
// from a fixed set of canned responses rather than talking to a node.
type fakeProvider struct {
	latest       provider.BlockHashAndNumber
	eventsByAddr map[felt.Felt][]provider.EmittedEvent
	blockTimestamps map[uint64]uint64
	txByHash     map[felt.Felt]provider.Transaction
	pendingBlock provider.Block
}

func (p *fakeProvider) BlockHashAndNumber(ctx context.Context) (provider.BlockHashAndNumber, error) {
	return p.latest, nil
}

func (p *fakeProvider) GetBlockWithTxHashes(ctx context.Context, id provider.BlockID) (provider.Block, error) {
	return provider.Block{}, nil
}

func (p *fakeProvider) GetBlockWithReceipts(ctx context.Context, id provider.BlockID) (provider.Block, error) {
	return p.pendingBlock, nil
}

func (p *fakeProvider) Call(ctx context.Context, req provider.CallRequest) ([]felt.Felt, error) {
	return nil, nil
}

func (p *fakeProvider) BatchRequests(ctx context.Context, reqs []provider.BatchRequest) ([]provider.BatchResponse, error) {
	out := make([]provider.BatchResponse, len(reqs))
	for i, req := range reqs {
		out[i] = provider.BatchResponse{Kind: req.Kind}
		switch req.Kind {
		case provider.ReqGetEvents:
			page := provider.EventsPage{Events: p.eventsByAddr[*req.GetEvents.Filter.Address]}
			out[i].GetEvents = &page
		case provider.ReqGetTransactionByHash:
			tx := p.txByHash[*req.GetTransactionByHash]
			out[i].GetTransactionByHash = &tx
		case provider.ReqGetBlockWithTxHashes:
			var bn uint64
			if req.GetBlockWithTxHashes.Number != nil {
				bn = *req.GetBlockWithTxHashes.Number
			} else {
				bn = p.latest.BlockNumber
			}
			out[i].GetBlockWithTxHashes = &provider.Block{BlockNumber: bn, Timestamp: p.blockTimestamps[bn]}
		}
	}
	return out, nil
}

func TestFetchRangeAssemblesOrderedBlocksAndTransactions(t *testing.T) {
	world := felt.MustFromHex("0x1")
	h1 := felt.MustFromHex("0xaaa")
	h2 := felt.MustFromHex("0xbbb")
	bn11, bn12 := uint64(11), uint64(12)

	p := &fakeProvider{
		latest: provider.BlockHashAndNumber{BlockNumber: 15},
		eventsByAddr: map[felt.Felt][]provider.EmittedEvent{
			world: {
				{Event: provider.Event{FromAddress: world}, BlockNumber: &bn12, TransactionHash: h2},
				{Event: provider.Event{FromAddress: world}, BlockNumber: &bn11, TransactionHash: h1},
			},
		},
		blockTimestamps: map[uint64]uint64{11: 1100, 12: 1200, 15: 1500},
		txByHash: map[felt.Felt]provider.Transaction{
			h1: {TransactionHash: h1},
			h2: {TransactionHash: h2},
		},
	}

	stage := &Stage{
		Provider:  p,
		Contracts: contract.NewSet([]contract.Contract{{Address: world, Kind: contract.KindWorld}}),
		Config:    Config{BlocksChunkSize: 100, EventsChunkSize: 10, BatchChunkSize: 10, WorldBlock: 10, Transactions: true},
	}

	res, err := stage.Fetch(context.Background(), cursor.Cursors{})
	require.NoError(t, err)
	require.NotNil(t, res.Range)
	require.Nil(t, res.Pending)

	r := res.Range
	require.Equal(t, []uint64{11, 12}, r.BlockOrder, "blocks must be ordered ascending regardless of page order")
	require.Equal(t, uint64(10), r.FromBlock)
	require.Equal(t, uint64(15), r.ToBlock)
	require.Equal(t, uint64(1100), r.Timestamps[11])
	require.Equal(t, uint64(1500), r.Timestamps[15], "the tip block's timestamp must be fetched too")

	tx11 := r.Transactions[11][h1]
	require.NotNil(t, tx11.Transaction, "Config.Transactions must attach the transaction body")
	require.Equal(t, h1, tx11.TransactionHash)
}

func TestFetchRangeSkipsAlreadyProcessedEventsUpToCursor(t *testing.T) {
	world := felt.MustFromHex("0x1")
	h1 := felt.MustFromHex("0xaaa")
	h2 := felt.MustFromHex("0xbbb")
	bn11, bn12 := uint64(11), uint64(12)

	p := &fakeProvider{
		latest: provider.BlockHashAndNumber{BlockNumber: 15},
		eventsByAddr: map[felt.Felt][]provider.EmittedEvent{
			world: {
				{Event: provider.Event{FromAddress: world}, BlockNumber: &bn11, TransactionHash: h1},
				{Event: provider.Event{FromAddress: world}, BlockNumber: &bn12, TransactionHash: h2},
			},
		},
		blockTimestamps: map[uint64]uint64{12: 1200, 15: 1500},
	}
	stage := &Stage{
		Provider:  p,
		Contracts: contract.NewSet([]contract.Contract{{Address: world, Kind: contract.KindWorld}}),
		Config:    Config{BlocksChunkSize: 100, EventsChunkSize: 10, BatchChunkSize: 10, WorldBlock: 10},
	}

	cursors := cursor.Cursors{
		HasHead:     true,
		Head:        10,
		PerContract: map[felt.Felt]cursor.ContractCursor{world: {LastTxHash: h1}},
	}
	res, err := stage.Fetch(context.Background(), cursors)
	require.NoError(t, err)
	require.NotNil(t, res.Range)
	require.Equal(t, []uint64{12}, res.Range.BlockOrder, "h1's own block/tx must be skipped, leaving only what comes after")
}

func TestFetchReturnsEmptyResultWhenCaughtUpAndPendingDisabled(t *testing.T) {
	p := &fakeProvider{latest: provider.BlockHashAndNumber{BlockNumber: 10}}
	stage := &Stage{
		Provider:  p,
		Contracts: contract.NewSet(nil),
		Config:    Config{BlocksChunkSize: 100, WorldBlock: 10},
	}
	res, err := stage.Fetch(context.Background(), cursor.Cursors{})
	require.NoError(t, err)
	require.Nil(t, res.Range)
	require.Nil(t, res.Pending)
}

func TestFetchPendingAbandonsWhenNewBlockWasMinedDuringWindow(t *testing.T) {
	p := &fakeProvider{
		latest:       provider.BlockHashAndNumber{BlockNumber: 10, BlockHash: felt.MustFromHex("0x1")},
		pendingBlock: provider.Block{ParentHash: felt.MustFromHex("0x999")}, // stale: doesn't match latest hash
	}
	stage := &Stage{
		Provider:  p,
		Contracts: contract.NewSet(nil),
		Config:    Config{BlocksChunkSize: 100, WorldBlock: 10, PendingBlocks: true},
	}
	res, err := stage.Fetch(context.Background(), cursor.Cursors{HasHead: true, Head: 10})
	require.NoError(t, err)
	require.Nil(t, res.Range)
	require.Nil(t, res.Pending)
}

func TestFetchPendingSkipsForwardPastLastProcessedTx(t *testing.T) {
	h1 := felt.MustFromHex("0xaaa")
	h2 := felt.MustFromHex("0xbbb")
	latestHash := felt.MustFromHex("0x1")
	p := &fakeProvider{
		latest: provider.BlockHashAndNumber{BlockNumber: 10, BlockHash: latestHash},
		pendingBlock: provider.Block{
			ParentHash: latestHash,
			Transactions: []provider.Transaction{
				{TransactionHash: h1},
				{TransactionHash: h2},
			},
		},
	}
	stage := &Stage{
		Provider:  p,
		Contracts: contract.NewSet(nil),
		Config:    Config{BlocksChunkSize: 100, WorldBlock: 10, PendingBlocks: true},
	}
	res, err := stage.Fetch(context.Background(), cursor.Cursors{HasHead: true, Head: 10, LastPendingTx: &h1})
	require.NoError(t, err)
	require.NotNil(t, res.Pending)
	require.Len(t, res.Pending.Transactions, 1)
	require.Equal(t, h2, res.Pending.Transactions[0].TransactionHash)
	require.Equal(t, uint64(11), res.Pending.BlockNumber)
}
