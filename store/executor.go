package store

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/dojoengine/torii-go/internal/xlog"
)

var logger = xlog.NewModuleLogger("store")

// Sink is what the executor ultimately writes to: a persistence store able
// to begin a transaction, apply a Message to it, and commit or roll it
// back. A concrete Sink lives outside this package's scope (spec.md §1);
// package store/sqlstore is a reference implementation.
type Sink interface {
	// Begin starts a new transaction the remaining calls operate on, until
	// Commit or Rollback ends it.
	Begin() error
	Apply(msg Message) error
	Commit() error
	Rollback() error
}

// Executor is the serialized write queue of C3. Send applies each message
// to the Sink's open transaction synchronously under a mutex, in the order
// the calls acquire it, which is the invariant spec.md §4.3 and §8
// (property 4) require. Multiple producers (task workers) may submit
// concurrently; the mutex is the serialization point, taking the place of
// the single-consumer channel drain the teacher uses for chainCh/reqCh in
// chaindata_fetcher.go's handleRequest.
type Executor struct {
	sink Sink

	mu      sync.Mutex
	pending []Message
	open    bool
}

// NewExecutor constructs an Executor over sink. The executor starts with no
// open transaction; Send implicitly opens one on first use within a tick.
func NewExecutor(sink Sink) *Executor {
	return &Executor{sink: sink}
}

// Send enqueues msg for the current tick's transaction. It is synchronous
// (applies to the sink immediately) rather than channel-buffered: the
// engine's task manager already bounds concurrency (package task), and an
// in-process mutex is sufficient to serialize writes from concurrent task
// workers without introducing an unbounded channel the rollback path would
// otherwise need to drain.
func (e *Executor) Send(msg Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		if err := e.sink.Begin(); err != nil {
			return errors.Wrap(err, "store: beginning transaction")
		}
		e.open = true
	}
	if err := e.sink.Apply(msg); err != nil {
		return errors.Wrapf(err, "store: applying message kind %d", msg.Kind)
	}
	e.pending = append(e.pending, msg)
	return nil
}

// Execute commits the open transaction. Called once per successful tick,
// after apply_cache_diff, per the engine loop in spec.md §4.8.
func (e *Executor) Execute() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return nil
	}
	if err := e.sink.Commit(); err != nil {
		return errors.Wrap(err, "store: committing transaction")
	}
	logger.Debug("committed tick", "messages", len(e.pending))
	e.open = false
	e.pending = e.pending[:0]
	return nil
}

// Rollback discards the open transaction. Cursors are left untouched
// because UpdateCursors was itself only ever a buffered message inside the
// now-discarded transaction (spec.md §3: "on rollback, cursors are
// untouched").
func (e *Executor) Rollback() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return nil
	}
	err := e.sink.Rollback()
	logger.Warn("rolled back tick", "messages", len(e.pending), "err", err)
	e.open = false
	e.pending = e.pending[:0]
	if err != nil {
		return errors.Wrap(err, "store: rolling back transaction")
	}
	return nil
}

// Pending returns a snapshot of messages applied (but not yet committed) in
// the current tick — used by tests asserting on ordering invariants.
func (e *Executor) Pending() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.pending))
	copy(out, e.pending)
	return out
}
