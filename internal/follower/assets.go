package follower

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/logger"
)

// minAssets is the smallest working capital a strategy may be tracked with.
var minAssets = decimal.NewFromInt(1000)

// CalculateAssets resolves the working capital for one strategy. An explicit
// total wins over the initial-capital spec; with only initial capital the
// total is initial times the strategy's live net value.
func CalculateAssets(ctx context.Context, strategyID string, totalAssets, initialAssets *float64, netValues interfaces.NetValueFetcher) (decimal.Decimal, error) {
	var assets decimal.Decimal

	switch {
	case totalAssets != nil:
		if !isFinite(*totalAssets) {
			return decimal.Zero, configErrorf("total assets for strategy %s is not a number", strategyID)
		}
		assets = decimal.NewFromFloat(*totalAssets)
	case initialAssets != nil:
		if !isFinite(*initialAssets) {
			return decimal.Zero, configErrorf("initial assets for strategy %s is not a number", strategyID)
		}
		netValue, err := netValues.NetValue(ctx, strategyID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("fetching net value for strategy %s: %w", strategyID, err)
		}
		assets = decimal.NewFromFloat(*initialAssets).Mul(netValue)
		logger.Info(ctx, "Assets derived from net value",
			"strategy", strategyID,
			"initial_assets", *initialAssets,
			"net_value", netValue.String(),
			"assets", assets.String(),
		)
	default:
		return decimal.Zero, configErrorf("strategy %s has neither total nor initial assets configured", strategyID)
	}

	if assets.LessThan(minAssets) {
		return decimal.Zero, configErrorf("assets for strategy %s must be at least 1000, got %s", strategyID, assets.String())
	}
	return assets, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
