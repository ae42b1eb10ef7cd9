// Package fetch implements the fetch stage (C7): pulling events in chunked
// ranges (or the pending block), attaching transaction bodies and block
// timestamps, and assembling the result into a FetchRange or FetchPending
// unit for the process stage, per spec.md §4.7.
package fetch

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/dojoengine/torii-go/contract"
	"github.com/dojoengine/torii-go/cursor"
	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/internal/xerrors"
	"github.com/dojoengine/torii-go/internal/xlog"
	"github.com/dojoengine/torii-go/provider"
)

var logger = xlog.NewModuleLogger("fetch")

// Config is the subset of engine configuration the fetch stage needs.
type Config struct {
	BlocksChunkSize  uint64
	EventsChunkSize  uint64
	BatchChunkSize   int
	WorldBlock       uint64
	Transactions     bool
	PendingBlocks    bool
}

// TxEvents is one transaction's events plus, when Config.Transactions is
// set, the transaction body itself.
type TxEvents struct {
	TransactionHash felt.Felt
	Transaction     *provider.Transaction
	Events          []provider.EmittedEvent
}

// Range is the FetchRange unit of spec.md §3: an ordered block→tx→events
// tree plus per-block timestamps.
type Range struct {
	FromBlock    uint64
	ToBlock      uint64
	BlockOrder   []uint64 // ascending, the iteration order process.go must use
	Timestamps   map[uint64]uint64
	TxOrder      map[uint64][]felt.Felt // block_number -> tx hashes sorted by numeric hash value (hashesLess), not by position in the block
	Transactions map[uint64]map[felt.Felt]*TxEvents
}

// Pending is the FetchPending unit of spec.md §3.
type Pending struct {
	BlockNumber      uint64
	Transactions     []TxEvents
	LastPendingTxSet *felt.Felt // not assigned anywhere in this module; it stays nil
}

// Result is the tagged outcome of one Fetch call: at most one of Range or
// Pending is non-nil; both nil means spec.md's step 5, "emit None".
type Result struct {
	Range   *Range
	Pending *Pending
}

// Stage runs the fetch algorithm against a provider over a closed set of
// indexed contracts.
type Stage struct {
	Provider  provider.Provider
	Contracts *contract.Set
	Config    Config
}

// Fetch runs spec.md §4.7's algorithm once. A Result whose Range and
// Pending are both nil (no error) means there is nothing to do this tick.
func (s *Stage) Fetch(ctx context.Context, cursors cursor.Cursors) (*Result, error) {
	latest, err := s.Provider.BlockHashAndNumber(ctx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindProviderTransient, errors.Wrap(err, "fetch: block_hash_and_number"))
	}

	from := s.Config.WorldBlock
	if cursors.HasHead {
		from = cursors.Head
		// The original treats block 0 as inclusive (nothing processed yet)
		// but every other cursor value as exclusive-of-last-processed, per
		// SPEC_FULL.md §12's "from == 0 ? from : from+1" boundary. This
		// only applies once a cursor actually exists; world_block remains
		// the inclusive floor on the first run.
		if from != 0 {
			from++
		}
	}
	to := latest.BlockNumber
	if from+s.Config.BlocksChunkSize < to {
		to = from + s.Config.BlocksChunkSize
	}

	if from < latest.BlockNumber {
		r, err := s.fetchRange(ctx, from, to, latest.BlockNumber, cursors)
		if err != nil {
			return nil, err
		}
		return &Result{Range: r}, nil
	}

	if s.Config.PendingBlocks {
		p, err := s.fetchPending(ctx, latest, cursors)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return &Result{}, nil
		}
		return &Result{Pending: p}, nil
	}

	return &Result{}, nil
}

func (s *Stage) fetchRange(ctx context.Context, from, to, latestBlock uint64, cursors cursor.Cursors) (*Range, error) {
	pages, err := s.fetchAllEventPages(ctx, from, to)
	if err != nil {
		return nil, err
	}

	blockTx := make(map[uint64]map[felt.Felt][]provider.EmittedEvent)
	blockNums := make(map[uint64]struct{})

	for addr, events := range pages {
		seen := make(map[felt.Felt]bool)
		skipUntil, hasSkip := felt.Zero, false
		if cc, ok := cursors.PerContract[addr]; ok && !cc.LastTxHash.IsZero() {
			skipUntil, hasSkip = cc.LastTxHash, true
		}
		for _, ev := range events {
			if ev.BlockNumber == nil || *ev.BlockNumber > to {
				continue
			}
			if hasSkip && !seen[skipUntil] {
				if ev.TransactionHash == skipUntil {
					seen[skipUntil] = true
				}
				continue
			}
			bn := *ev.BlockNumber
			if blockTx[bn] == nil {
				blockTx[bn] = make(map[felt.Felt][]provider.EmittedEvent)
			}
			blockTx[bn][ev.TransactionHash] = append(blockTx[bn][ev.TransactionHash], ev)
			blockNums[bn] = struct{}{}
		}
	}

	blockOrder := make([]uint64, 0, len(blockNums)+1)
	for bn := range blockNums {
		blockOrder = append(blockOrder, bn)
	}
	sort.Slice(blockOrder, func(i, j int) bool { return blockOrder[i] < blockOrder[j] })

	txOrder := make(map[uint64][]felt.Felt, len(blockOrder))
	transactions := make(map[uint64]map[felt.Felt]*TxEvents, len(blockOrder))
	for _, bn := range blockOrder {
		hashes := make([]felt.Felt, 0, len(blockTx[bn]))
		for h := range blockTx[bn] {
			hashes = append(hashes, h)
		}
		sort.Slice(hashes, func(i, j int) bool { return hashesLess(hashes[i], hashes[j]) })
		txOrder[bn] = hashes

		txMap := make(map[felt.Felt]*TxEvents, len(hashes))
		for _, h := range hashes {
			txMap[h] = &TxEvents{TransactionHash: h, Events: blockTx[bn][h]}
		}
		transactions[bn] = txMap
	}

	if s.Config.Transactions {
		if err := s.attachTransactions(ctx, transactions, blockOrder); err != nil {
			return nil, err
		}
	}

	timestampBlocks := append(append([]uint64{}, blockOrder...), to)
	timestamps, err := s.fetchTimestamps(ctx, timestampBlocks, latestBlock)
	if err != nil {
		return nil, err
	}

	return &Range{
		FromBlock:    from,
		ToBlock:      to,
		BlockOrder:   blockOrder,
		Timestamps:   timestamps,
		TxOrder:      txOrder,
		Transactions: transactions,
	}, nil
}

// hashesLess provides a deterministic, if arbitrary, order for transaction
// hashes whose true emission order does not matter across transactions in
// the same page — within a single transaction's own events, order is
// preserved from the provider response, which is all spec.md requires.
func hashesLess(a, b felt.Felt) bool {
	return a.Big().Cmp(b.Big()) < 0
}

// fetchAllEventPages issues a get_events request per contract and follows
// continuation tokens, per spec.md §4.7 steps 3a-3b.
func (s *Stage) fetchAllEventPages(ctx context.Context, from, to uint64) (map[felt.Felt][]provider.EmittedEvent, error) {
	addrs := s.Contracts.Addresses()
	out := make(map[felt.Felt][]provider.EmittedEvent, len(addrs))
	if len(addrs) == 0 {
		return out, nil
	}

	type pending struct {
		addr  felt.Felt
		token *string
	}
	round := make([]pending, len(addrs))
	for i, a := range addrs {
		round[i] = pending{addr: a}
	}

	for len(round) > 0 {
		reqs := make([]provider.BatchRequest, len(round))
		for i, p := range round {
			addr := p.addr
			reqs[i] = provider.BatchRequest{
				Kind: provider.ReqGetEvents,
				GetEvents: &provider.GetEventsRequest{
					Filter: provider.EventFilter{
						FromBlock: provider.BlockIDNumber(from),
						ToBlock:   provider.BlockIDTag(provider.BlockTagLatest),
						Address:   &addr,
					},
					ChunkSize:         s.Config.EventsChunkSize,
					ContinuationToken: p.token,
				},
			}
		}
		resps, err := provider.ChunkedBatch(ctx, s.Provider, reqs, s.Config.BatchChunkSize)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.KindProviderTransient, errors.Wrap(err, "fetch: get_events batch"))
		}

		var next []pending
		for i, resp := range resps {
			if resp.Err != nil {
				return nil, xerrors.Wrapf(xerrors.KindProviderProtocol, resp.Err, "fetch: get_events for %s", round[i].addr.Hex())
			}
			if resp.GetEvents == nil {
				return nil, xerrors.Wrap(xerrors.KindProviderProtocol, errors.New("fetch: get_events response missing payload"))
			}
			page := resp.GetEvents
			addr := round[i].addr
			out[addr] = append(out[addr], page.Events...)

			if page.ContinuationToken == nil || len(page.Events) == 0 {
				continue
			}
			lastBlockInPage := uint64(0)
			if last := page.Events[len(page.Events)-1]; last.BlockNumber != nil {
				lastBlockInPage = *last.BlockNumber
			}
			if lastBlockInPage < to {
				next = append(next, pending{addr: addr, token: page.ContinuationToken})
			}
		}
		round = next
	}
	return out, nil
}

// attachTransactions batches get_transaction_by_hash for every distinct
// transaction seen in the range, per spec.md §4.7 step 3e.
func (s *Stage) attachTransactions(ctx context.Context, transactions map[uint64]map[felt.Felt]*TxEvents, blockOrder []uint64) error {
	var hashes []felt.Felt
	var refs []*TxEvents
	for _, bn := range blockOrder {
		for _, h := range sortedKeys(transactions[bn]) {
			hashes = append(hashes, h)
			refs = append(refs, transactions[bn][h])
		}
	}
	if len(hashes) == 0 {
		return nil
	}

	reqs := make([]provider.BatchRequest, len(hashes))
	for i := range hashes {
		h := hashes[i]
		reqs[i] = provider.BatchRequest{Kind: provider.ReqGetTransactionByHash, GetTransactionByHash: &h}
	}
	resps, err := provider.ChunkedBatch(ctx, s.Provider, reqs, s.Config.BatchChunkSize)
	if err != nil {
		return errors.Wrap(err, "fetch: get_transaction_by_hash batch")
	}
	for i, resp := range resps {
		if resp.Err != nil {
			return errors.Wrapf(resp.Err, "fetch: get_transaction_by_hash for %s", hashes[i].Hex())
		}
		refs[i].Transaction = resp.GetTransactionByHash
	}
	return nil
}

func sortedKeys(m map[felt.Felt]*TxEvents) []felt.Felt {
	out := make([]felt.Felt, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return hashesLess(out[i], out[j]) })
	return out
}

// fetchTimestamps batches get_block_with_tx_hashes for every distinct
// block number, using the Latest tag for the tip block to stay stable
// against a reorg race (spec.md §4.7 step 3f).
func (s *Stage) fetchTimestamps(ctx context.Context, blockNums []uint64, latestBlock uint64) (map[uint64]uint64, error) {
	uniq := make(map[uint64]struct{}, len(blockNums))
	var ordered []uint64
	for _, bn := range blockNums {
		if _, ok := uniq[bn]; ok {
			continue
		}
		uniq[bn] = struct{}{}
		ordered = append(ordered, bn)
	}
	if len(ordered) == 0 {
		return map[uint64]uint64{}, nil
	}

	reqs := make([]provider.BatchRequest, len(ordered))
	for i, bn := range ordered {
		id := provider.BlockIDNumber(bn)
		if bn == latestBlock {
			id = provider.BlockIDTag(provider.BlockTagLatest)
		}
		reqs[i] = provider.BatchRequest{Kind: provider.ReqGetBlockWithTxHashes, GetBlockWithTxHashes: &id}
	}
	resps, err := provider.ChunkedBatch(ctx, s.Provider, reqs, s.Config.BatchChunkSize)
	if err != nil {
		return nil, errors.Wrap(err, "fetch: get_block_with_tx_hashes batch")
	}

	out := make(map[uint64]uint64, len(ordered))
	for i, resp := range resps {
		if resp.Err != nil {
			return nil, errors.Wrapf(resp.Err, "fetch: get_block_with_tx_hashes for block %d", ordered[i])
		}
		if resp.GetBlockWithTxHashes == nil {
			return nil, errors.New("fetch: get_block_with_tx_hashes response missing payload")
		}
		out[ordered[i]] = resp.GetBlockWithTxHashes.Timestamp
	}
	return out, nil
}

// fetchPending fetches BlockTag::Pending and abandons (returns nil, nil) if
// a new block was mined during the window, per spec.md §4.7 step 4.
func (s *Stage) fetchPending(ctx context.Context, latest provider.BlockHashAndNumber, cursors cursor.Cursors) (*Pending, error) {
	pendingBlock, err := s.Provider.GetBlockWithReceipts(ctx, provider.BlockIDTag(provider.BlockTagPending))
	if err != nil {
		return nil, errors.Wrap(err, "fetch: get_block_with_receipts(pending)")
	}
	if pendingBlock.ParentHash != latest.BlockHash {
		logger.Trace("pending block abandoned: new block mined during window")
		return nil, nil
	}

	txs := pendingBlock.Transactions
	if cursors.LastPendingTx != nil {
		skip := true
		filtered := txs[:0:0]
		for _, tx := range txs {
			if skip {
				if tx.TransactionHash == *cursors.LastPendingTx {
					skip = false
				}
				continue
			}
			filtered = append(filtered, tx)
		}
		txs = filtered
	}

	derivedBlock := latest.BlockNumber + 1
	out := make([]TxEvents, len(txs))
	for i, tx := range txs {
		tx := tx
		events := make([]provider.EmittedEvent, len(tx.Events))
		for j, e := range tx.Events {
			bn := derivedBlock
			events[j] = provider.EmittedEvent{Event: e, BlockNumber: &bn, TransactionHash: tx.TransactionHash}
		}
		out[i] = TxEvents{TransactionHash: tx.TransactionHash, Transaction: &tx, Events: events}
	}

	return &Pending{
		BlockNumber:  latest.BlockNumber + 1,
		Transactions: out,
	}, nil
}
