package follower

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCommandStore struct {
	mu      sync.Mutex
	marks   map[string][]int64
	markErr error
}

func newMemoryCommandStore() *memoryCommandStore {
	return &memoryCommandStore{marks: make(map[string][]int64)}
}

func (m *memoryCommandStore) LoadCommands(ctx context.Context, strategyID string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.marks[strategyID]...), nil
}

func (m *memoryCommandStore) MarkCommand(ctx context.Context, strategyID string, txID int64) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[strategyID] = append(m.marks[strategyID], txID)
	return nil
}

func TestDedupCacheMarkAndContains(t *testing.T) {
	cache := NewDedupCache(nil)
	ctx := context.Background()

	assert.False(t, cache.Contains("ZH1", 1))

	require.NoError(t, cache.Mark(ctx, "ZH1", 1))
	assert.True(t, cache.Contains("ZH1", 1))
	assert.False(t, cache.Contains("ZH2", 1), "marks are per strategy")
}

func TestDedupCacheMarkIdempotent(t *testing.T) {
	store := newMemoryCommandStore()
	cache := NewDedupCache(store)
	ctx := context.Background()

	require.NoError(t, cache.Mark(ctx, "ZH1", 7))
	require.NoError(t, cache.Mark(ctx, "ZH1", 7))
	require.NoError(t, cache.Mark(ctx, "ZH1", 7))

	assert.Len(t, store.marks["ZH1"], 1, "repeat marks must not hit the store")
}

func TestDedupCacheLoadRestoresMarks(t *testing.T) {
	store := newMemoryCommandStore()
	ctx := context.Background()

	first := NewDedupCache(store)
	require.NoError(t, first.Mark(ctx, "ZH1", 1))
	require.NoError(t, first.Mark(ctx, "ZH1", 2))

	second := NewDedupCache(store)
	assert.False(t, second.Contains("ZH1", 1))
	require.NoError(t, second.Load(ctx, "ZH1"))
	assert.True(t, second.Contains("ZH1", 1))
	assert.True(t, second.Contains("ZH1", 2))
}

func TestDedupCacheMarkSticksWhenPersistFails(t *testing.T) {
	store := newMemoryCommandStore()
	store.markErr = errors.New("disk full")
	cache := NewDedupCache(store)
	ctx := context.Background()

	err := cache.Mark(ctx, "ZH1", 5)
	require.Error(t, err)
	assert.True(t, cache.Contains("ZH1", 5), "in-memory mark must survive a persist failure")
}
