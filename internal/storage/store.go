// Package storage persists the audit trail of mirrored trades in a local
// SQLite database: operation rows, derived holdings, account balances and the
// executed-command cache that survives restarts.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/types"
)

type Store struct {
	db *sql.DB
}

var (
	_ interfaces.Storage      = (*Store)(nil)
	_ interfaces.CommandStore = (*Store)(nil)
)

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// WAL mode for concurrent tracker writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Run schema migration
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertOperation records a dispatched order. An operation is immutable, so a
// replay of the same (account, stock, time) row is a no-op.
func (s *Store) UpsertOperation(ctx context.Context, rec types.OperationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations (account_id, stock_name, stock_code, action, price,
			shares, prev_weight, target_weight, operation_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, stock_code, operation_time) DO NOTHING`,
		rec.AccountID, rec.StockName, rec.StockCode, string(rec.Action), rec.Price.String(),
		rec.Shares, rec.PrevWeight.String(), rec.TargetWeight.String(), rec.OperationTime.UTC(),
	)
	return err
}

// UpsertHolding keeps one row per (account, stock) holding current.
func (s *Store) UpsertHolding(ctx context.Context, rec types.HoldingRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holdings (account_id, stock_code, stock_name, shares,
			target_weight, holding_time, cleared)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, stock_code) DO UPDATE SET
			stock_name = excluded.stock_name,
			shares = excluded.shares,
			target_weight = excluded.target_weight,
			holding_time = excluded.holding_time,
			cleared = excluded.cleared`,
		rec.AccountID, rec.StockCode, rec.StockName, rec.Shares,
		rec.TargetWeight.String(), rec.HoldingTime.UTC(), rec.Cleared,
	)
	return err
}

func (s *Store) UpdateAccountBalance(ctx context.Context, accountID string, assets decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (account_id, total_balance, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			total_balance = excluded.total_balance,
			updated_at = excluded.updated_at`,
		accountID, assets.String(), time.Now().UTC(),
	)
	return err
}

// MarkCommand records an executed transaction id. Marking twice is a no-op.
func (s *Store) MarkCommand(ctx context.Context, strategyID string, txID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO trade_cmds (strategy_id, tx_id, executed_at)
		VALUES (?, ?, ?)`,
		strategyID, txID, time.Now().UTC(),
	)
	return err
}

// LoadCommands returns every executed transaction id for a strategy.
func (s *Store) LoadCommands(ctx context.Context, strategyID string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tx_id FROM trade_cmds WHERE strategy_id = ? ORDER BY tx_id`, strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Holdings returns the current holdings for an account, cleared ones last.
func (s *Store) Holdings(ctx context.Context, accountID string) ([]types.HoldingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, stock_code, stock_name, shares, target_weight, holding_time, cleared
		FROM holdings
		WHERE account_id = ?
		ORDER BY cleared, stock_code`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.HoldingRecord
	for rows.Next() {
		var (
			rec    types.HoldingRecord
			weight string
		)
		if err := rows.Scan(&rec.AccountID, &rec.StockCode, &rec.StockName,
			&rec.Shares, &weight, &rec.HoldingTime, &rec.Cleared); err != nil {
			return nil, err
		}
		rec.TargetWeight, err = decimal.NewFromString(weight)
		if err != nil {
			return nil, fmt.Errorf("holding %s has bad weight %q: %w", rec.StockCode, weight, err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// RecentOperations returns the newest operation rows, most recent first.
func (s *Store) RecentOperations(ctx context.Context, limit int) ([]types.OperationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, stock_name, stock_code, action, price, shares,
			prev_weight, target_weight, operation_time
		FROM operations
		ORDER BY operation_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.OperationRecord
	for rows.Next() {
		var (
			rec                         types.OperationRecord
			action, price, prev, target string
		)
		if err := rows.Scan(&rec.AccountID, &rec.StockName, &rec.StockCode, &action,
			&price, &rec.Shares, &prev, &target, &rec.OperationTime); err != nil {
			return nil, err
		}
		rec.Action = types.Action(action)
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("operation %s has bad price %q: %w", rec.StockCode, price, err)
		}
		if rec.PrevWeight, err = decimal.NewFromString(prev); err != nil {
			return nil, fmt.Errorf("operation %s has bad prev weight %q: %w", rec.StockCode, prev, err)
		}
		if rec.TargetWeight, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("operation %s has bad target weight %q: %w", rec.StockCode, target, err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}
