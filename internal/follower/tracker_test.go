package follower

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/types"
)

type stubFetcher struct {
	mu      sync.Mutex
	payload *types.RebalancingHistory
	err     error
	calls   int
}

func (s *stubFetcher) RebalancingHistory(ctx context.Context, strategyID string) (*types.RebalancingHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.payload, s.err
}

type spyAccount struct {
	mu        sync.Mutex
	id        string
	submitErr error
	submitted []types.Order
}

func (a *spyAccount) ID() string { return a.id }

func (a *spyAccount) Submit(ctx context.Context, order types.Order) (types.OrderAck, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.submitErr != nil {
		return types.OrderAck{}, a.submitErr
	}
	a.submitted = append(a.submitted, order)
	return types.OrderAck{OrderID: "SPY-1", Status: "PLACED"}, nil
}

func (a *spyAccount) orders() []types.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]types.Order(nil), a.submitted...)
}

type spyStorage struct {
	mu         sync.Mutex
	operations []types.OperationRecord
	holdings   []types.HoldingRecord
	balances   map[string]decimal.Decimal
}

func newSpyStorage() *spyStorage {
	return &spyStorage{balances: make(map[string]decimal.Decimal)}
}

func (s *spyStorage) UpsertOperation(ctx context.Context, rec types.OperationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations = append(s.operations, rec)
	return nil
}

func (s *spyStorage) UpsertHolding(ctx context.Context, rec types.HoldingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdings = append(s.holdings, rec)
	return nil
}

func (s *spyStorage) UpdateAccountBalance(ctx context.Context, accountID string, assets decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[accountID] = assets
	return nil
}

func historyWithOneBuy(txID int64, ts time.Time) *types.RebalancingHistory {
	return &types.RebalancingHistory{
		Count: 1,
		List: []types.RebalancingGroup{
			{
				ID: 1,
				Histories: []types.RawTransaction{
					{
						ID:           txID,
						StockSymbol:  "SH600000",
						StockName:    "PuFa Bank",
						PrevWeight:   dp("20"),
						TargetWeight: dp("30"),
						Price:        dp("13.14"),
						UpdatedAt:    ts.UnixMilli(),
					},
				},
			},
		},
	}
}

func newTestTracker(fetcher *stubFetcher, account *spyAccount, dedup *DedupCache, storage *spyStorage) *Tracker {
	state := types.StrategyState{ID: "ZH1", Name: "test strategy", Assets: decimal.NewFromInt(100000)}
	return NewTracker(state, fetcher, []interfaces.TradeAccount{account}, &Projector{}, dedup, storage,
		10*time.Millisecond, 120*time.Second)
}

func TestTrackerDispatchesAndDedups(t *testing.T) {
	fetcher := &stubFetcher{payload: historyWithOneBuy(101, time.Now())}
	account := &spyAccount{id: "1"}
	storage := newSpyStorage()
	tracker := newTestTracker(fetcher, account, NewDedupCache(nil), storage)
	ctx := context.Background()

	tracker.poll(ctx)
	tracker.poll(ctx)

	orders := account.orders()
	require.Len(t, orders, 1, "replayed payload must not dispatch twice")
	assert.Equal(t, types.ActionBuy, orders[0].Action)
	assert.EqualValues(t, 800, orders[0].Shares)

	require.Len(t, storage.operations, 1)
	assert.Equal(t, "1", storage.operations[0].AccountID)
	assert.EqualValues(t, 800, storage.operations[0].Shares)

	require.Len(t, storage.holdings, 1)
	assert.EqualValues(t, 2300, storage.holdings[0].Shares)
	assert.False(t, storage.holdings[0].Cleared)

	assert.True(t, storage.balances["1"].Equal(decimal.NewFromInt(100000)))
}

func TestTrackerReplayAfterRestart(t *testing.T) {
	store := newMemoryCommandStore()
	fetcher := &stubFetcher{payload: historyWithOneBuy(102, time.Now())}
	ctx := context.Background()

	// first run dispatches and persists the command mark
	first := &spyAccount{id: "1"}
	dedup := NewDedupCache(store)
	newTestTracker(fetcher, first, dedup, newSpyStorage()).poll(ctx)
	require.Len(t, first.orders(), 1)

	// simulated restart: fresh cache loaded from the store
	second := &spyAccount{id: "1"}
	restored := NewDedupCache(store)
	require.NoError(t, restored.Load(ctx, "ZH1"))
	newTestTracker(fetcher, second, restored, newSpyStorage()).poll(ctx)

	assert.Empty(t, second.orders(), "restored cache must suppress replayed transactions")
}

func TestTrackerDiscardsStaleOrder(t *testing.T) {
	stale := time.Now().Add(-10 * time.Minute)
	fetcher := &stubFetcher{payload: historyWithOneBuy(103, stale)}
	account := &spyAccount{id: "1"}
	dedup := NewDedupCache(nil)
	tracker := newTestTracker(fetcher, account, dedup, newSpyStorage())

	tracker.poll(context.Background())

	assert.Empty(t, account.orders(), "stale orders must never reach the account")
	assert.True(t, dedup.Contains("ZH1", 103), "stale transactions are marked so they are not re-evaluated")
}

func TestTrackerRetriesFailedDispatch(t *testing.T) {
	fetcher := &stubFetcher{payload: historyWithOneBuy(104, time.Now())}
	account := &spyAccount{id: "1", submitErr: errors.New("exchange closed")}
	dedup := NewDedupCache(nil)
	tracker := newTestTracker(fetcher, account, dedup, newSpyStorage())
	ctx := context.Background()

	tracker.poll(ctx)
	assert.False(t, dedup.Contains("ZH1", 104), "failed dispatch must not be marked")

	account.mu.Lock()
	account.submitErr = nil
	account.mu.Unlock()

	tracker.poll(ctx)
	assert.Len(t, account.orders(), 1, "transaction retried on the next cycle")
	assert.True(t, dedup.Contains("ZH1", 104))
}

func TestTrackerSurvivesFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("timeout")}
	account := &spyAccount{id: "1"}
	tracker := newTestTracker(fetcher, account, NewDedupCache(nil), newSpyStorage())

	tracker.poll(context.Background())
	assert.Empty(t, account.orders())

	// recovery on a later cycle
	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.payload = historyWithOneBuy(105, time.Now())
	fetcher.mu.Unlock()

	tracker.poll(context.Background())
	assert.Len(t, account.orders(), 1)
}

func TestTrackerRunStopsOnCancel(t *testing.T) {
	fetcher := &stubFetcher{payload: &types.RebalancingHistory{}}
	tracker := newTestTracker(fetcher, &spyAccount{id: "1"}, NewDedupCache(nil), newSpyStorage())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop after cancellation")
	}

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.GreaterOrEqual(t, fetcher.calls, 1)
}
