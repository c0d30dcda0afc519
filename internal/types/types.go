package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the direction of a projected order.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// RebalancingHistory is the raw payload returned by the portfolio site for one
// strategy: a paged list of rebalancing events, newest first.
type RebalancingHistory struct {
	Count int                `json:"count"`
	List  []RebalancingGroup `json:"list"`
}

// RebalancingGroup is one rebalancing event with its per-stock adjustments.
type RebalancingGroup struct {
	ID        int64            `json:"id"`
	Status    string           `json:"status"`
	Histories []RawTransaction `json:"rebalancing_histories"`
}

// RawTransaction is a single stock adjustment as the site reports it. Weights
// and price are pointers because the site omits them for unfilled entries.
type RawTransaction struct {
	ID           int64            `json:"id"`
	StockSymbol  string           `json:"stock_symbol"`
	StockName    string           `json:"stock_name"`
	PrevWeight   *decimal.Decimal `json:"prev_weight_adjusted"`
	TargetWeight *decimal.Decimal `json:"target_weight"`
	Price        *decimal.Decimal `json:"price"`
	UpdatedAt    int64            `json:"updated_at"` // unix milliseconds
}

// Transaction is a priced, normalized adjustment extracted from the raw
// history. Absent weights are normalized to zero. Immutable once extracted.
type Transaction struct {
	ID           int64
	StockCode    string // lowercased symbol
	StockName    string
	PrevWeight   decimal.Decimal
	TargetWeight decimal.Decimal
	Price        decimal.Decimal
	Timestamp    time.Time
}

// Order is a concrete trade instruction projected from a Transaction.
type Order struct {
	StrategyID   string
	StockCode    string
	StockName    string
	Action       Action
	Shares       int64 // non-negative, multiple of 100
	Price        decimal.Decimal
	PrevWeight   decimal.Decimal
	TargetWeight decimal.Decimal
	Timestamp    time.Time
}

// OrderAck is a trading account's response to a submitted order.
type OrderAck struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Position is a read-only view of one holding in a trading account.
type Position struct {
	StockCode       string
	AvailableShares int64
}

// StrategyState is the per-strategy tracking context. Assets is fixed for the
// lifetime of a tracking session.
type StrategyState struct {
	ID       string
	Name     string
	Assets   decimal.Decimal
	NetValue decimal.Decimal
}

// OperationRecord is the audit row persisted for a dispatched order.
type OperationRecord struct {
	AccountID     string
	StockName     string
	StockCode     string
	Action        Action
	Price         decimal.Decimal
	Shares        int64
	PrevWeight    decimal.Decimal
	TargetWeight  decimal.Decimal
	OperationTime time.Time
}

// HoldingRecord is the per-stock holding derived from the latest target
// weight. Cleared marks a position the strategy has fully exited.
type HoldingRecord struct {
	AccountID    string
	StockName    string
	StockCode    string
	Shares       int64
	TargetWeight decimal.Decimal
	HoldingTime  time.Time
	Cleared      bool
}
