package follower

import (
	"context"
	"sync"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/logger"
)

// DedupCache tracks which transaction ids have already been turned into
// submitted orders, per strategy. It only grows during a run. With a backing
// CommandStore the marks survive restarts; without one the cache is purely
// in-memory.
type DedupCache struct {
	mu    sync.Mutex
	seen  map[string]map[int64]struct{}
	store interfaces.CommandStore
}

// NewDedupCache creates a cache. store may be nil for in-memory-only operation.
func NewDedupCache(store interfaces.CommandStore) *DedupCache {
	return &DedupCache{
		seen:  make(map[string]map[int64]struct{}),
		store: store,
	}
}

// Load restores previously marked transaction ids for a strategy from the
// backing store. No-op without a store.
func (c *DedupCache) Load(ctx context.Context, strategyID string) error {
	if c.store == nil {
		return nil
	}
	ids, err := c.store.LoadCommands(ctx, strategyID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.strategySet(strategyID)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	logger.Info(ctx, "Restored executed command cache", "strategy", strategyID, "commands", len(ids))
	return nil
}

// Contains reports whether the transaction has already been converted to an
// order.
func (c *DedupCache) Contains(strategyID string, txID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[strategyID][txID]
	return ok
}

// Mark records a transaction as executed. Marking an already-marked id is a
// no-op. The in-memory mark always sticks, even when persisting it fails, so
// the same order cannot be reissued within this run.
func (c *DedupCache) Mark(ctx context.Context, strategyID string, txID int64) error {
	c.mu.Lock()
	set := c.strategySet(strategyID)
	if _, ok := set[txID]; ok {
		c.mu.Unlock()
		return nil
	}
	set[txID] = struct{}{}
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.MarkCommand(ctx, strategyID, txID)
}

// strategySet returns the per-strategy id set, creating it if needed. Caller
// must hold c.mu.
func (c *DedupCache) strategySet(strategyID string) map[int64]struct{} {
	set, ok := c.seen[strategyID]
	if !ok {
		set = make(map[int64]struct{})
		c.seen[strategyID] = set
	}
	return set
}
