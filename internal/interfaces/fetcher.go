package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"trade-mirror/internal/types"
)

// HistoryFetcher returns the raw rebalancing history for a strategy. A nil
// payload with a nil error means the site had nothing for the strategy.
type HistoryFetcher interface {
	RebalancingHistory(ctx context.Context, strategyID string) (*types.RebalancingHistory, error)
}

// NetValueFetcher returns the live cumulative net value of a strategy.
type NetValueFetcher interface {
	NetValue(ctx context.Context, strategyID string) (decimal.Decimal, error)
}

// StrategyResolver resolves a strategy identifier to its display name.
type StrategyResolver interface {
	StrategyName(ctx context.Context, strategyID string) (string, error)
}
