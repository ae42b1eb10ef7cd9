// Package cache implements the local cache (C4): the in-memory balance
// delta map, the token-registration single-flight lock table, and the
// model-schema read-through cache described in spec.md §4.4. It follows
// the teacher's own common/cache.go shape — a small wrapper type around a
// hashicorp/golang-lru cache for the read-through part, plus plain
// mutex-guarded maps for the write-heavy parts, which the teacher does not
// put behind an LRU since entries are drained every tick rather than
// evicted by capacity.
package cache

import (
	"math/big"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/internal/xlog"
)

var logger = xlog.NewModuleLogger("cache")

// balanceDeltasInitialCapacity matches spec.md §4.4: "drained and replaced
// with a fresh empty map (initial capacity 64)".
const balanceDeltasInitialCapacity = 64

// modelCacheSize bounds the read-through model-schema cache; models are
// small and rarely number in the thousands even for large worlds, so this
// is generous headroom rather than a tuned value.
const modelCacheSize = 4096

// ModelSchema is the external-to-core record cached by selector, per
// spec.md §3.
type ModelSchema struct {
	Selector  felt.Felt
	Namespace string
	Name      string
	Schema    []byte
}

// ModelLoader loads a model schema on a cache miss.
type ModelLoader func(selector felt.Felt) (ModelSchema, error)

// Cache is the engine-exclusive local cache. The engine owns it during a
// processing tick (spec.md §3 "Ownership"); concurrent task workers are the
// only other mutators, via AddBalanceDelta and the token-registration
// methods below.
type Cache struct {
	mu             sync.RWMutex
	balanceDeltas  map[string]*big.Int

	regMu      sync.Mutex
	registered map[string]struct{}
	regLocks   map[string]*sync.Mutex

	models     *lru.Cache
	loadModel  ModelLoader
}

// New constructs an empty Cache. loadModel is consulted on a model-cache
// miss and the result is cached for subsequent lookups.
func New(loadModel ModelLoader) *Cache {
	models, err := lru.New(modelCacheSize)
	if err != nil {
		// lru.New only errors on a non-positive size, which modelCacheSize
		// never is.
		panic(err)
	}
	return &Cache{
		balanceDeltas: make(map[string]*big.Int, balanceDeltasInitialCapacity),
		registered:    make(map[string]struct{}),
		regLocks:      make(map[string]*sync.Mutex),
		models:        models,
		loadModel:     loadModel,
	}
}

// AddBalanceDelta accumulates a signed delta for balanceID ("to_or_from +
// ':' + token_id" per spec.md §3) under the writer lock.
func (c *Cache) AddBalanceDelta(balanceID string, delta *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.balanceDeltas[balanceID]
	if !ok {
		cur = new(big.Int)
		c.balanceDeltas[balanceID] = cur
	}
	cur.Add(cur, delta)
}

// DrainBalanceDeltas atomically snapshots and replaces the balance-delta
// map with a fresh empty one (spec.md §4.4: "Mutated under a writer lock;
// drained and replaced with a fresh empty map"). This is the only safe
// place to read the full map — correctness depends on this happening
// strictly after the task manager's process_tasks() has returned (spec.md
// §5), which the engine enforces by sequencing ApplyCacheDiff after
// process_tasks in its tick.
func (c *Cache) DrainBalanceDeltas() map[string]*big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	drained := c.balanceDeltas
	c.balanceDeltas = make(map[string]*big.Int, balanceDeltasInitialCapacity)
	logger.Debug("drained balance deltas", "count", len(drained))
	return drained
}

// GetTokenRegistrationLock returns the mutex to hold across a token's
// registration RPC+enqueue iff the token has not yet been marked
// registered; otherwise it returns (nil, false), meaning some other
// processor already owns (or has completed) that registration. This is the
// single-flight contract of spec.md §4.4: "Callers that receive a mutex
// must hold it across the registration's RPC+enqueue; they then call
// mark_token_registered(id)."
func (c *Cache) GetTokenRegistrationLock(tokenID string) (*sync.Mutex, bool) {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	if _, done := c.registered[tokenID]; done {
		return nil, false
	}
	l, ok := c.regLocks[tokenID]
	if !ok {
		l = &sync.Mutex{}
		c.regLocks[tokenID] = l
	}
	return l, true
}

// MarkTokenRegistered records that tokenID's registration message has been
// enqueued; subsequent GetTokenRegistrationLock calls for the same id
// return (nil, false).
func (c *Cache) MarkTokenRegistered(tokenID string) {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	c.registered[tokenID] = struct{}{}
	delete(c.regLocks, tokenID)
}

// IsTokenRegistered reports whether tokenID has completed registration —
// used by the ERC processors to re-check after acquiring the lock from
// GetTokenRegistrationLock, so a waiter does not register a token twice.
func (c *Cache) IsTokenRegistered(tokenID string) bool {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	_, ok := c.registered[tokenID]
	return ok
}

// Model is the read-through lookup of spec.md §4.4.3: "Model cache —
// read-through by selector."
func (c *Cache) Model(selector felt.Felt) (ModelSchema, error) {
	if v, ok := c.models.Get(selector); ok {
		return v.(ModelSchema), nil
	}
	m, err := c.loadModel(selector)
	if err != nil {
		return ModelSchema{}, err
	}
	c.models.Add(selector, m)
	return m, nil
}

// InvalidateModel drops a cached schema, used after a RegisterModel write
// so a subsequent read picks up the new schema rather than a stale miss
// placeholder.
func (c *Cache) InvalidateModel(selector felt.Felt) {
	c.models.Remove(selector)
}

