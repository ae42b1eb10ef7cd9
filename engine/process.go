package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dojoengine/torii-go/cursor"
	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/fetch"
	"github.com/dojoengine/torii-go/processor"
	"github.com/dojoengine/torii-go/store"
	"github.com/dojoengine/torii-go/task"
)

// worldStoreSelectors is the WORLD-kind selector set whose second key
// (Keys[1]) is a model_selector worth tracking as "touched", per spec.md
// §4.8 step 1.
var worldStoreSelectors = map[felt.Felt]bool{
	processor.SelectorStoreSetRecord:    true,
	processor.SelectorStoreUpdateRecord: true,
	processor.SelectorStoreDelRecord:    true,
	processor.SelectorStoreUpdateMember: true,
	processor.SelectorEventEmitted:      true,
}

// contractAccum tracks the per-contract cursor increment (step 4) as the
// range is walked in block/transaction order.
type contractAccum struct {
	lastTx felt.Felt
	count  uint64
	seenTx map[felt.Felt]bool
}

// processRange implements spec.md §4.8's FetchRange path: enqueue one task
// per classified event, invoke block/transaction processors, run the task
// manager once for the whole range, then buffer the cursor update.
func (e *Engine) processRange(ctx context.Context, r *fetch.Range) error {
	pc := processor.Context{Ctx: ctx, Provider: e.Provider, Executor: e.Executor, Cache: e.Cache, Metadata: e.Metadata}
	perContract := make(map[felt.Felt]*contractAccum)

	touch := func(addr, txHash felt.Felt) {
		acc, ok := perContract[addr]
		if !ok {
			acc = &contractAccum{seenTx: make(map[felt.Felt]bool)}
			perContract[addr] = acc
		}
		if !acc.seenTx[txHash] {
			acc.seenTx[txHash] = true
			acc.count++
		}
		acc.lastTx = txHash
	}

	for _, bn := range r.BlockOrder {
		touchedModels := make(map[felt.Felt]struct{})
		contractsSeen := make(map[felt.Felt]struct{})

		for _, txHash := range r.TxOrder[bn] {
			txEv := r.Transactions[bn][txHash]
			for idx, ev := range txEv.Events {
				kind, ok := e.Contracts.Lookup(ev.FromAddress)
				if !ok {
					continue
				}
				contractsSeen[ev.FromAddress] = struct{}{}
				touch(ev.FromAddress, txHash)

				if len(ev.Keys) >= 2 && worldStoreSelectors[ev.Keys[0]] {
					touchedModels[ev.Keys[1]] = struct{}{}
				}

				pev := processor.Event{
					ContractKind:    kind,
					ContractAddress: ev.FromAddress,
					EventID:         felt.EventID(bn, txHash, idx),
					Event:           ev.Event,
					BlockNumber:     bn,
					BlockTimestamp:  r.Timestamps[bn],
					TransactionHash: txHash,
				}
				p := e.Registry.Dispatch(pev)
				e.Tasks.Add(task.Task{
					ID:      p.TaskIdentifier(pev),
					Deps:    p.TaskDependencies(pev),
					Payload: func() error { return p.Process(pc, pev) },
				})
			}
		}

		for _, bp := range e.Registry.BlockProcessors() {
			if err := bp.ProcessBlock(pc, bn, r.Timestamps[bn]); err != nil {
				e.Tasks.ClearTasks()
				return errors.Wrapf(err, "block processor at block %d", bn)
			}
		}

		if e.Config.Flags.Transactions {
			for _, txHash := range r.TxOrder[bn] {
				txEv := r.Transactions[bn][txHash]
				if txEv.Transaction == nil {
					continue
				}
				for _, tp := range e.Registry.TransactionProcessors() {
					if err := tp.ProcessTransaction(pc, bn, r.Timestamps[bn], txHash, contractsSeen, *txEv.Transaction, touchedModels); err != nil {
						e.Tasks.ClearTasks()
						return errors.Wrapf(err, "transaction processor at block %d tx %s", bn, txHash.Hex())
					}
				}
			}
		}
	}

	if err := e.Tasks.ProcessTasks(); err != nil {
		return errors.Wrap(err, "process_tasks")
	}

	cursorUpdate := cursor.Cursors{
		Head:          r.ToBlock,
		HasHead:       true,
		LastTimestamp: r.Timestamps[r.ToBlock],
		PerContract:   make(map[felt.Felt]cursor.ContractCursor, len(perContract)),
	}
	for addr, acc := range perContract {
		cursorUpdate.PerContract[addr] = cursor.ContractCursor{LastTxHash: acc.lastTx, TxCount: acc.count}
	}

	return e.sendCursorUpdate(cursorUpdate, nil)
}

// processPending implements spec.md §4.8's FetchPending path.
func (e *Engine) processPending(ctx context.Context, p *fetch.Pending) error {
	pc := processor.Context{Ctx: ctx, Provider: e.Provider, Executor: e.Executor, Cache: e.Cache, Metadata: e.Metadata}

	var lastProcessed *felt.Felt
	for _, txEv := range p.Transactions {
		txHash := txEv.TransactionHash
		for idx, ev := range txEv.Events {
			kind, ok := e.Contracts.Lookup(ev.FromAddress)
			if !ok {
				continue
			}
			pev := processor.Event{
				ContractKind:    kind,
				ContractAddress: ev.FromAddress,
				EventID:         felt.EventID(p.BlockNumber, txHash, idx),
				Event:           ev.Event,
				BlockNumber:     p.BlockNumber,
				TransactionHash: txHash,
			}
			pr := e.Registry.Dispatch(pev)
			e.Tasks.Add(task.Task{
				ID:      pr.TaskIdentifier(pev),
				Deps:    pr.TaskDependencies(pev),
				Payload: func() error { return pr.Process(pc, pev) },
			})
		}
		h := txHash
		lastProcessed = &h
	}

	if err := e.Tasks.ProcessTasks(); err != nil {
		return errors.Wrap(err, "process_tasks (pending)")
	}

	cursorUpdate := cursor.Cursors{
		Head:    p.BlockNumber - 1,
		HasHead: true,
	}
	return e.sendCursorUpdate(cursorUpdate, lastProcessed)
}

func (e *Engine) sendCursorUpdate(c cursor.Cursors, lastPendingTx *felt.Felt) error {
	perContract := make(map[felt.Felt]struct {
		LastTxHash felt.Felt
		TxCount    uint64
	}, len(c.PerContract))
	for addr, cc := range c.PerContract {
		perContract[addr] = struct {
			LastTxHash felt.Felt
			TxCount    uint64
		}{LastTxHash: cc.LastTxHash, TxCount: cc.TxCount}
	}
	return e.Executor.Send(store.Message{
		Kind: store.MsgUpdateCursors,
		UpdateCursors: &store.UpdateCursors{
			Head:          c.Head,
			Timestamp:     c.LastTimestamp,
			LastPendingTx: lastPendingTx,
			PerContract:   perContract,
		},
	})
}

// applyCacheDiff drains the balance-delta cache and buffers one
// ApplyBalanceDiff message per entry. Called only after process_tasks()
// has returned successfully (spec.md §5 "Shared resources").
func (e *Engine) applyCacheDiff() error {
	diffs := e.Cache.DrainBalanceDeltas()
	for balanceID, delta := range diffs {
		if err := e.Executor.Send(store.Message{
			Kind: store.MsgApplyBalanceDiff,
			ApplyBalanceDiff: &store.ApplyBalanceDiff{BalanceID: balanceID, Delta: delta.String()},
		}); err != nil {
			return errors.Wrap(err, "applying balance diff")
		}
	}
	return nil
}
