package storage

const schemaDDL = `
CREATE TABLE IF NOT EXISTS operations (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id     TEXT NOT NULL,
	stock_name     TEXT NOT NULL,
	stock_code     TEXT NOT NULL,
	action         TEXT NOT NULL,
	price          TEXT NOT NULL,
	shares         INTEGER NOT NULL DEFAULT 0,
	prev_weight    TEXT NOT NULL DEFAULT '0',
	target_weight  TEXT NOT NULL DEFAULT '0',
	operation_time DATETIME NOT NULL,
	UNIQUE(account_id, stock_code, operation_time)
);

CREATE INDEX IF NOT EXISTS idx_operations_stock ON operations(stock_code);
CREATE INDEX IF NOT EXISTS idx_operations_time ON operations(operation_time);

CREATE TABLE IF NOT EXISTS holdings (
	account_id    TEXT NOT NULL,
	stock_code    TEXT NOT NULL,
	stock_name    TEXT NOT NULL,
	shares        INTEGER NOT NULL DEFAULT 0,
	target_weight TEXT NOT NULL DEFAULT '0',
	holding_time  DATETIME NOT NULL,
	cleared       BOOLEAN NOT NULL DEFAULT 0,
	PRIMARY KEY(account_id, stock_code)
);

CREATE TABLE IF NOT EXISTS accounts (
	account_id    TEXT PRIMARY KEY,
	total_balance TEXT NOT NULL DEFAULT '0',
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trade_cmds (
	strategy_id TEXT NOT NULL,
	tx_id       INTEGER NOT NULL,
	executed_at DATETIME NOT NULL,
	PRIMARY KEY(strategy_id, tx_id)
);
`
