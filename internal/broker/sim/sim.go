// Package sim is the dry-run trading account: orders are acknowledged with
// synthetic ids and applied to an in-memory position book.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/types"
)

type Account struct {
	id string

	mu        sync.Mutex
	positions map[string]int64
	submitted []types.Order
}

var (
	_ interfaces.TradeAccount   = (*Account)(nil)
	_ interfaces.PositionLookup = (*Account)(nil)
)

// New creates a simulated account seeded with the given positions (stock code
// to available shares). positions may be nil.
func New(id string, positions map[string]int64) *Account {
	book := make(map[string]int64, len(positions))
	for code, shares := range positions {
		book[code] = shares
	}
	return &Account{id: id, positions: book}
}

func (a *Account) ID() string {
	return a.id
}

func (a *Account) Submit(ctx context.Context, order types.Order) (types.OrderAck, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if order.Action == types.ActionBuy {
		a.positions[order.StockCode] += order.Shares
	} else {
		a.positions[order.StockCode] -= order.Shares
		if a.positions[order.StockCode] <= 0 {
			delete(a.positions, order.StockCode)
		}
	}
	a.submitted = append(a.submitted, order)

	return types.OrderAck{
		OrderID: fmt.Sprintf("SIM-%d", time.Now().UnixNano()),
		Status:  "SIMULATED",
		Message: "dry-run",
	}, nil
}

func (a *Account) Position(ctx context.Context, stockCode string) (*types.Position, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	shares, ok := a.positions[stockCode]
	if !ok {
		return nil, nil
	}
	return &types.Position{StockCode: stockCode, AvailableShares: shares}, nil
}

// Submitted returns a copy of every order the account has accepted.
func (a *Account) Submitted() []types.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.Order, len(a.submitted))
	copy(out, a.submitted)
	return out
}
