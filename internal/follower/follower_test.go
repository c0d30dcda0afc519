package follower

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-mirror/internal/interfaces"
)

type stubResolver struct {
	names map[string]string
	err   error
}

func (s *stubResolver) StrategyName(ctx context.Context, strategyID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.names[strategyID], nil
}

func newTestFollower(fetcher interfaces.HistoryFetcher, account interfaces.TradeAccount) *Follower {
	return &Follower{
		History:   fetcher,
		NetValues: &stubNetValues{netValue: dec("1.2")},
		Names:     &stubResolver{names: map[string]string{"ZH1": "test strategy"}},
		Accounts:  []interfaces.TradeAccount{account},
	}
}

func TestFollowRejectsEmptyStrategies(t *testing.T) {
	f := newTestFollower(&stubFetcher{}, &spyAccount{id: "1"})
	err := f.Follow(context.Background(), FollowRequest{TotalAssets: []float64{100000}})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestFollowRejectsMissingAccounts(t *testing.T) {
	f := newTestFollower(&stubFetcher{}, &spyAccount{id: "1"})
	f.Accounts = nil
	err := f.Follow(context.Background(), FollowRequest{
		Strategies:  []string{"ZH1"},
		TotalAssets: []float64{100000},
	})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestFollowRejectsAssetLengthMismatch(t *testing.T) {
	f := newTestFollower(&stubFetcher{}, &spyAccount{id: "1"})
	err := f.Follow(context.Background(), FollowRequest{
		Strategies:  []string{"ZH1", "ZH2", "ZH3"},
		TotalAssets: []float64{100000, 50000},
	})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "total_assets")
}

func TestFollowRejectsOutOfRangeSlippage(t *testing.T) {
	f := newTestFollower(&stubFetcher{}, &spyAccount{id: "1"})
	err := f.Follow(context.Background(), FollowRequest{
		Strategies:  []string{"ZH1"},
		TotalAssets: []float64{100000},
		Slippage:    1.0,
	})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestFollowFailsFastOnNameResolution(t *testing.T) {
	f := newTestFollower(&stubFetcher{}, &spyAccount{id: "1"})
	f.Names = &stubResolver{err: errors.New("cube page unavailable")}
	err := f.Follow(context.Background(), FollowRequest{
		Strategies:  []string{"ZH1"},
		TotalAssets: []float64{100000},
	})

	require.Error(t, err)
	var cfgErr *ConfigError
	assert.False(t, errors.As(err, &cfgErr), "resolution failures are not configuration errors")
}

func TestFollowDispatchesUntilCancelled(t *testing.T) {
	fetcher := &stubFetcher{payload: historyWithOneBuy(201, time.Now())}
	account := &spyAccount{id: "1"}
	f := newTestFollower(fetcher, account)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.Follow(ctx, FollowRequest{
			Strategies:    []string{"ZH1"},
			TotalAssets:   []float64{100000},
			TrackInterval: 10 * time.Millisecond,
		})
	}()

	require.Eventually(t, func() bool {
		return len(account.orders()) == 1
	}, time.Second, 10*time.Millisecond, "order never dispatched")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Follow did not return after cancellation")
	}

	assert.Len(t, account.orders(), 1, "replayed payload dispatched more than once")
}

func TestBroadcastAssets(t *testing.T) {
	out, err := broadcastAssets(nil, 3, "total_assets")
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, v := range out {
		assert.Nil(t, v)
	}

	out, err = broadcastAssets([]float64{100000}, 3, "total_assets")
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, v := range out {
		require.NotNil(t, v)
		assert.Equal(t, 100000.0, *v)
	}

	out, err = broadcastAssets([]float64{1, 2, 3}, 3, "total_assets")
	require.NoError(t, err)
	assert.Equal(t, 2.0, *out[1])
}

var _ interfaces.StrategyResolver = (*stubResolver)(nil)
