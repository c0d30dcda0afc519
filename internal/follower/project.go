package follower

import (
	"context"

	"github.com/shopspring/decimal"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/logger"
	"trade-mirror/internal/types"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Projector converts weight-delta transactions into concrete share orders.
// It is safe for concurrent use by multiple trackers.
type Projector struct {
	AdjustSell bool
	Slippage   decimal.Decimal
	Positions  interfaces.PositionLookup
}

// Project derives the order for a transaction:
//
//	shares = |target - prev| / 100 * assets / price, rounded to the nearest
//	even hundred (so 1049 -> 1000, 1050 -> 1000, 1051 -> 1100).
//
// Slippage shifts the execution price against the order before sizing: a buy
// pays price*(1+slippage), a sell receives price*(1-slippage). The adjusted
// price is also the submitted limit price. A nil order means there is nothing
// to trade: equal weights, a non-positive price, or a size that rounds to
// zero.
func (p *Projector) Project(ctx context.Context, tx types.Transaction, strategyID string, assets decimal.Decimal) *types.Order {
	weightDiff := tx.TargetWeight.Sub(tx.PrevWeight)
	if weightDiff.IsZero() {
		return nil
	}
	if !tx.Price.IsPositive() {
		logger.Warn(ctx, "Transaction has non-positive price, skipping",
			"strategy", strategyID, "tx_id", tx.ID, "stock_code", tx.StockCode, "price", tx.Price.String())
		return nil
	}

	action := types.ActionSell
	if weightDiff.IsPositive() {
		action = types.ActionBuy
	}

	price := p.executionPrice(tx.Price, action)
	shares := roundToLot(weightDiff.Abs().Div(hundred).Mul(assets).Div(price))

	if action == types.ActionSell && p.AdjustSell {
		shares = p.adjustSellShares(ctx, tx.StockCode, shares)
	}
	if shares <= 0 {
		return nil
	}

	return &types.Order{
		StrategyID:   strategyID,
		StockCode:    tx.StockCode,
		StockName:    tx.StockName,
		Action:       action,
		Shares:       shares,
		Price:        price,
		PrevWeight:   tx.PrevWeight,
		TargetWeight: tx.TargetWeight,
		Timestamp:    tx.Timestamp,
	}
}

// ProjectHolding computes the share count the strategy's target weight implies
// for the whole position, at the transaction's raw price.
func ProjectHolding(tx types.Transaction, assets decimal.Decimal) int64 {
	if !tx.Price.IsPositive() {
		return 0
	}
	return roundToLot(tx.TargetWeight.Abs().Div(hundred).Mul(assets).Div(tx.Price))
}

func (p *Projector) executionPrice(price decimal.Decimal, action types.Action) decimal.Decimal {
	if p.Slippage.IsZero() {
		return price
	}
	if action == types.ActionBuy {
		return price.Mul(one.Add(p.Slippage))
	}
	return price.Mul(one.Sub(p.Slippage))
}

// adjustSellShares clamps a sell against the live position. Weight-based
// sizing can round a sell above what the earlier rounded buy acquired, which
// would make the whole order fail at the broker. The clamp floors to the
// largest full lot the position covers and never adjusts upward. An unknown or
// unreadable position leaves the order unchanged.
func (p *Projector) adjustSellShares(ctx context.Context, stockCode string, shares int64) int64 {
	pos, err := p.Positions.Position(ctx, stockCode)
	if err != nil {
		logger.Warn(ctx, "Position lookup failed, leaving sell amount unchanged",
			"stock_code", stockCode, "shares", shares, "error", err)
		return shares
	}
	if pos == nil {
		logger.Info(ctx, "Stock not held, leaving sell amount unchanged",
			"stock_code", stockCode, "shares", shares)
		return shares
	}
	if pos.AvailableShares >= shares {
		return shares
	}

	adjusted := pos.AvailableShares / 100 * 100
	logger.Info(ctx, "Sell amount clamped to available position",
		"stock_code", stockCode,
		"available", pos.AvailableShares,
		"requested", shares,
		"adjusted", adjusted,
	)
	return adjusted
}

// roundToLot rounds a share amount to the nearest hundred, ties to the even
// hundred (bankers rounding, matching decimal-style round-half-even).
func roundToLot(shares decimal.Decimal) int64 {
	return shares.Div(hundred).RoundBank(0).Mul(hundred).IntPart()
}
