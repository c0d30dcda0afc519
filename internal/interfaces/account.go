package interfaces

import (
	"context"

	"trade-mirror/internal/types"
)

// TradeAccount is a brokerage account orders are mirrored into.
type TradeAccount interface {
	ID() string
	Submit(ctx context.Context, order types.Order) (types.OrderAck, error)
}

// PositionLookup reads live holdings from a trading account. A nil position
// with a nil error means the stock is not held.
type PositionLookup interface {
	Position(ctx context.Context, stockCode string) (*types.Position, error)
}
