package follower

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/logger"
	"trade-mirror/internal/types"
)

// Follower starts one tracker per followed strategy, every tracker mirroring
// into the full set of trading accounts.
type Follower struct {
	History   interfaces.HistoryFetcher
	NetValues interfaces.NetValueFetcher
	Names     interfaces.StrategyResolver
	Accounts  []interfaces.TradeAccount
	Positions interfaces.PositionLookup
	Storage   interfaces.Storage
	Commands  interfaces.CommandStore
}

// FollowRequest configures one Follow call. TotalAssets and InitialAssets are
// parallel to Strategies; a single value broadcasts, an empty list means
// unset.
type FollowRequest struct {
	Strategies     []string
	TotalAssets    []float64
	InitialAssets  []float64
	AdjustSell     bool
	TrackInterval  time.Duration
	TradeCmdExpire time.Duration
	CmdCache       bool
	Slippage       float64
}

// Follow validates the request, resolves every strategy, then runs one tracker
// goroutine per strategy until ctx is cancelled. Configuration problems are
// fatal and reported before any tracker starts; after startup, failures are
// isolated per strategy cycle.
func (f *Follower) Follow(ctx context.Context, req FollowRequest) error {
	if len(req.Strategies) == 0 {
		return configErrorf("no strategies to follow")
	}
	if len(f.Accounts) == 0 {
		return configErrorf("no trading accounts configured")
	}
	if req.Slippage < 0 || req.Slippage >= 1 {
		return configErrorf("slippage must be in [0, 1), got %v", req.Slippage)
	}
	if req.TrackInterval <= 0 {
		req.TrackInterval = 10 * time.Second
	}
	if req.TradeCmdExpire <= 0 {
		req.TradeCmdExpire = 120 * time.Second
	}

	totals, err := broadcastAssets(req.TotalAssets, len(req.Strategies), "total_assets")
	if err != nil {
		return err
	}
	initials, err := broadcastAssets(req.InitialAssets, len(req.Strategies), "initial_assets")
	if err != nil {
		return err
	}

	states := make([]types.StrategyState, 0, len(req.Strategies))
	for i, strategyID := range req.Strategies {
		assets, err := CalculateAssets(ctx, strategyID, totals[i], initials[i], f.NetValues)
		if err != nil {
			return err
		}
		name, err := f.Names.StrategyName(ctx, strategyID)
		if err != nil {
			return fmt.Errorf("resolving name for strategy %s: %w", strategyID, err)
		}
		states = append(states, types.StrategyState{ID: strategyID, Name: name, Assets: assets})
	}

	var commandStore interfaces.CommandStore
	if req.CmdCache {
		commandStore = f.Commands
	}
	dedup := NewDedupCache(commandStore)
	if req.CmdCache {
		for _, state := range states {
			if err := dedup.Load(ctx, state.ID); err != nil {
				return fmt.Errorf("loading command cache for strategy %s: %w", state.ID, err)
			}
		}
	}

	projector := &Projector{
		AdjustSell: req.AdjustSell,
		Slippage:   decimal.NewFromFloat(req.Slippage),
		Positions:  f.Positions,
	}

	var wg sync.WaitGroup
	for _, state := range states {
		tracker := NewTracker(state, f.History, f.Accounts, projector, dedup, f.Storage,
			req.TrackInterval, req.TradeCmdExpire)
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Run(ctx)
		}()
		logger.Info(ctx, "Started strategy tracker", "strategy", state.ID, "name", state.Name)
	}

	wg.Wait()
	return nil
}

// broadcastAssets expands an asset spec list to one optional value per
// strategy. Accepted lengths: 0 (unset for all), 1 (broadcast), n (pairwise).
func broadcastAssets(values []float64, n int, name string) ([]*float64, error) {
	out := make([]*float64, n)
	switch len(values) {
	case 0:
		return out, nil
	case 1:
		for i := range out {
			v := values[0]
			out[i] = &v
		}
		return out, nil
	case n:
		for i := range out {
			v := values[i]
			out[i] = &v
		}
		return out, nil
	default:
		return nil, configErrorf("%s has %d entries for %d strategies", name, len(values), n)
	}
}
