// Package engine wires C1-C9 together into the indexing engine's main loop:
// read cursors, fetch a unit of work, process it, flush or roll back, sleep.
// The loop itself follows the teacher's chaindata_fetcher.go Start/Stop
// shape (a single goroutine driven by a ticker, with a stop channel and a
// retry/backoff helper), generalized from klaytn's fixed retry interval to
// spec.md §4.8's exponential 1s->60s backoff.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dojoengine/torii-go/broker"
	"github.com/dojoengine/torii-go/cache"
	"github.com/dojoengine/torii-go/contract"
	"github.com/dojoengine/torii-go/cursor"
	"github.com/dojoengine/torii-go/fetch"
	"github.com/dojoengine/torii-go/internal/xlog"
	"github.com/dojoengine/torii-go/metrics"
	"github.com/dojoengine/torii-go/processor"
	"github.com/dojoengine/torii-go/provider"
	"github.com/dojoengine/torii-go/store"
	"github.com/dojoengine/torii-go/task"
)

var logger = xlog.NewModuleLogger("engine")

// Engine owns every in-process component for one indexed world and drives
// the tick loop described in spec.md §4.8.
type Engine struct {
	Provider  provider.Provider
	Cursors   cursor.Store
	Executor  *store.Executor
	Cache     *cache.Cache
	Contracts *contract.Set
	Registry  *processor.Registry
	Tasks     *task.Manager
	Metadata  processor.MetadataFetcher
	Entities  *broker.EntityBroker
	Events    *broker.EventBroker
	Config    Config

	fetchStage *fetch.Stage

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs an Engine. Callers must have already registered every
// processor they need on registry (see processor.RegisterBuiltins).
func New(p provider.Provider, cursors cursor.Store, executor *store.Executor, c *cache.Cache, contracts *contract.Set, registry *processor.Registry, metadata processor.MetadataFetcher, cfg Config) *Engine {
	return &Engine{
		Provider:  p,
		Cursors:   cursors,
		Executor:  executor,
		Cache:     c,
		Contracts: contracts,
		Registry:  registry,
		Tasks:     task.NewManager(cfg.MaxConcurrentTasks),
		Metadata:  metadata,
		Entities:  broker.NewEntityBroker(cfg.SubscriptionChannelSize),
		Events:    broker.NewEventBroker(cfg.SubscriptionChannelSize),
		Config:    cfg,
		fetchStage: &fetch.Stage{
			Provider:  p,
			Contracts: contracts,
			Config: fetch.Config{
				BlocksChunkSize: cfg.BlocksChunkSize,
				EventsChunkSize: cfg.EventsChunkSize,
				BatchChunkSize:  cfg.BatchChunkSize,
				WorldBlock:      cfg.WorldBlock,
				Transactions:    cfg.Flags.Transactions,
				PendingBlocks:   cfg.Flags.PendingBlocks,
			},
		},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start runs the engine loop until Stop is called or ctx is cancelled. It
// blocks; call it from its own goroutine.
func (e *Engine) Start(ctx context.Context) {
	defer close(e.doneCh)

	backoff := minBackoff
	erroringOut := false

	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		if err := e.tick(ctx); err != nil {
			metrics.TickErrorCounter.Inc(1)
			logger.Warn("tick failed", "err", err, "backoff", backoff)
			erroringOut = true
			metrics.BackoffSecondsGauge.Update(int64(backoff / time.Second))
			if !sleepOrStop(e.stopCh, ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		if erroringOut {
			logger.Info("syncing reestablished")
			erroringOut = false
		}
		backoff = minBackoff
		metrics.BackoffSecondsGauge.Update(0)
		metrics.TickDurationGauge.Update(time.Since(start).Milliseconds())

		if !sleepOrStop(e.stopCh, ctx, e.Config.PollingInterval) {
			return
		}
	}
}

// Stop signals the loop to exit and waits for it to do so.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	<-e.doneCh
}

// tick runs exactly one iteration: read cursors, fetch, process,
// flush-or-rollback, per spec.md §4.8's engine loop pseudocode.
func (e *Engine) tick(ctx context.Context) error {
	cursors, err := e.Cursors.Cursors()
	if err != nil {
		return err
	}

	result, err := e.fetchStage.Fetch(ctx, cursors)
	if err != nil {
		return err
	}

	switch {
	case result.Range != nil:
		if err := e.processRange(ctx, result.Range); err != nil {
			e.Executor.Rollback()
			return err
		}
		metrics.HeadBlockGauge.Update(int64(result.Range.ToBlock))
	case result.Pending != nil:
		if err := e.processPending(ctx, result.Pending); err != nil {
			e.Executor.Rollback()
			return err
		}
	default:
		return nil
	}

	if err := e.applyCacheDiff(); err != nil {
		e.Executor.Rollback()
		return err
	}
	return e.Executor.Execute()
}

// sleepOrStop waits for d, returning false early (meaning the caller should
// exit) if the stop channel fires or ctx is cancelled first.
func sleepOrStop(stopCh <-chan struct{}, ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}
