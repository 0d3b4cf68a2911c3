// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS executions (
	trade_id TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	quantity REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	pnl REAL NOT NULL,
	return_pct REAL NOT NULL,
	reason TEXT NOT NULL,
	partial INTEGER NOT NULL,
	strike REAL NOT NULL,
	entry_iv REAL NOT NULL,
	exit_iv REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	equity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_executions_close_time ON executions(close_time);
CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
