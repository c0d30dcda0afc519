package follower

import (
	"context"
	"time"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/logger"
	"trade-mirror/internal/tradelog"
	"trade-mirror/internal/types"
)

// Tracker runs the poll loop for one strategy: fetch history, extract
// transactions, project orders for the ones not seen before, dispatch them to
// every trading account and persist the results. A failing cycle is logged and
// retried on the next tick; only context cancellation stops the loop.
type Tracker struct {
	strategy  types.StrategyState
	history   interfaces.HistoryFetcher
	accounts  []interfaces.TradeAccount
	projector *Projector
	dedup     *DedupCache
	storage   interfaces.Storage

	interval time.Duration
	expire   time.Duration

	now func() time.Time
}

func NewTracker(strategy types.StrategyState, history interfaces.HistoryFetcher, accounts []interfaces.TradeAccount,
	projector *Projector, dedup *DedupCache, storage interfaces.Storage, interval, expire time.Duration) *Tracker {
	return &Tracker{
		strategy:  strategy,
		history:   history,
		accounts:  accounts,
		projector: projector,
		dedup:     dedup,
		storage:   storage,
		interval:  interval,
		expire:    expire,
		now:       time.Now,
	}
}

// Run polls immediately and then on every interval tick until ctx is
// cancelled. The current cycle finishes cooperatively before the loop exits.
func (t *Tracker) Run(ctx context.Context) {
	logger.Info(ctx, "Tracking strategy",
		"strategy", t.strategy.ID,
		"name", t.strategy.Name,
		"assets", t.strategy.Assets.String(),
		"interval", t.interval.String(),
	)

	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	t.poll(ctx)
	for {
		select {
		case <-tick.C:
			t.poll(ctx)
		case <-ctx.Done():
			logger.Info(ctx, "Tracker stopped", "strategy", t.strategy.ID)
			return
		}
	}
}

// poll runs one fetch-project-dispatch cycle.
func (t *Tracker) poll(ctx context.Context) {
	timer := logger.StartOperation(ctx, "poll_cycle", "strategy", t.strategy.ID)

	history, err := t.history.RebalancingHistory(ctx, t.strategy.ID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch rebalancing history", err, "strategy", t.strategy.ID)
		timer.EndWithError(err)
		return
	}

	transactions := ExtractTransactions(ctx, history)
	dispatched := 0
	for _, tx := range transactions {
		// stop flag between transactions so shutdown latency stays bounded
		select {
		case <-ctx.Done():
			timer.End("transactions", len(transactions), "dispatched", dispatched)
			return
		default:
		}

		if t.dedup.Contains(t.strategy.ID, tx.ID) {
			continue
		}

		order := t.projector.Project(ctx, tx, t.strategy.ID, t.strategy.Assets)
		if order == nil {
			// Equal weights or a zero-lot size can never become dispatchable,
			// so remember the id and stop re-evaluating it.
			t.mark(ctx, tx.ID)
			continue
		}

		if age := t.now().Sub(order.Timestamp); age > t.expire {
			logger.Risk(ctx, t.strategy.ID, "STALE_ORDER_DISCARDED",
				"tx_id", tx.ID,
				"stock_code", order.StockCode,
				"action", string(order.Action),
				"shares", order.Shares,
				"age", age.String(),
				"expire", t.expire.String(),
			)
			t.mark(ctx, tx.ID)
			continue
		}

		if !t.dispatch(ctx, order) {
			// Not marked: the transaction is retried next cycle until it
			// succeeds or falls out of the expiry window.
			continue
		}

		t.mark(ctx, tx.ID)
		t.persist(ctx, tx, order)
		dispatched++
	}

	t.updateBalances(ctx)
	timer.End("transactions", len(transactions), "dispatched", dispatched)
}

// dispatch submits the order to every account. Orders already accepted by an
// earlier account are not rolled back when a later one fails; the whole
// transaction is retried next cycle instead.
func (t *Tracker) dispatch(ctx context.Context, order *types.Order) bool {
	ok := true
	for _, account := range t.accounts {
		ack, err := account.Submit(ctx, *order)
		if err != nil {
			logger.ErrorWithErr(ctx, "Order dispatch failed", err,
				"strategy", t.strategy.ID,
				"account", account.ID(),
				"stock_code", order.StockCode,
				"action", string(order.Action),
				"shares", order.Shares,
			)
			ok = false
			continue
		}

		logger.Trade(ctx, t.strategy.ID, order.StockCode, string(order.Action), order.Shares, order.Price.String(), ack.OrderID,
			"account", account.ID(),
			"stock_name", order.StockName,
			"prev_weight", order.PrevWeight.String(),
			"target_weight", order.TargetWeight.String(),
		)
		if err := tradelog.Append(tradelog.Entry{
			Strategy:  t.strategy.ID,
			StockCode: order.StockCode,
			StockName: order.StockName,
			Action:    string(order.Action),
			Shares:    order.Shares,
			Price:     order.Price.String(),
			AccountID: account.ID(),
			OrderID:   ack.OrderID,
			Status:    ack.Status,
		}); err != nil {
			logger.Warn(ctx, "Failed to append trade log entry", "error", err)
		}
	}
	return ok
}

// persist writes the audit rows for a dispatched order. Storage is an audit
// trail, not the source of truth for what was traded, so failures are logged
// and the cycle continues.
func (t *Tracker) persist(ctx context.Context, tx types.Transaction, order *types.Order) {
	if t.storage == nil {
		return
	}

	holdingShares := ProjectHolding(tx, t.strategy.Assets)
	for _, account := range t.accounts {
		if err := t.storage.UpsertOperation(ctx, types.OperationRecord{
			AccountID:     account.ID(),
			StockName:     order.StockName,
			StockCode:     order.StockCode,
			Action:        order.Action,
			Price:         order.Price,
			Shares:        order.Shares,
			PrevWeight:    order.PrevWeight,
			TargetWeight:  order.TargetWeight,
			OperationTime: order.Timestamp,
		}); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist operation", err,
				"strategy", t.strategy.ID, "account", account.ID(), "stock_code", order.StockCode)
		}

		if err := t.storage.UpsertHolding(ctx, types.HoldingRecord{
			AccountID:    account.ID(),
			StockName:    order.StockName,
			StockCode:    order.StockCode,
			Shares:       holdingShares,
			TargetWeight: order.TargetWeight,
			HoldingTime:  order.Timestamp,
			Cleared:      order.TargetWeight.IsZero(),
		}); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist holding", err,
				"strategy", t.strategy.ID, "account", account.ID(), "stock_code", order.StockCode)
		}
	}
}

func (t *Tracker) updateBalances(ctx context.Context) {
	if t.storage == nil {
		return
	}
	for _, account := range t.accounts {
		if err := t.storage.UpdateAccountBalance(ctx, account.ID(), t.strategy.Assets); err != nil {
			logger.ErrorWithErr(ctx, "Failed to update account balance", err,
				"strategy", t.strategy.ID, "account", account.ID())
		}
	}
}

func (t *Tracker) mark(ctx context.Context, txID int64) {
	if err := t.dedup.Mark(ctx, t.strategy.ID, txID); err != nil {
		logger.Warn(ctx, "Failed to persist command mark",
			"strategy", t.strategy.ID, "tx_id", txID, "error", err)
	}
}
