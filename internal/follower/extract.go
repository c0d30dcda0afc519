package follower

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-mirror/internal/logger"
	"trade-mirror/internal/types"
)

// ExtractTransactions flattens every rebalancing group in the payload into one
// ordered sequence of priced transactions. Entries without a price never
// filled, so they are logged and skipped rather than treated as an error.
func ExtractTransactions(ctx context.Context, history *types.RebalancingHistory) []types.Transaction {
	if history == nil || history.Count <= 0 {
		return nil
	}

	var transactions []types.Transaction
	for _, group := range history.List {
		for _, raw := range group.Histories {
			if raw.Price == nil {
				logger.Info(ctx, "Skipping unfilled transaction",
					"tx_id", raw.ID,
					"stock_symbol", raw.StockSymbol,
					"stock_name", raw.StockName,
				)
				continue
			}
			transactions = append(transactions, types.Transaction{
				ID:           raw.ID,
				StockCode:    strings.ToLower(raw.StockSymbol),
				StockName:    raw.StockName,
				PrevWeight:   valueOrZero(raw.PrevWeight),
				TargetWeight: valueOrZero(raw.TargetWeight),
				Price:        *raw.Price,
				Timestamp:    time.UnixMilli(raw.UpdatedAt),
			})
		}
	}
	return transactions
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
