package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordExecution(r ExecutionRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO executions
		(trade_id, side, entry_price, exit_price, quantity, open_time, close_time,
		 pnl, return_pct, reason, partial, strike, entry_iv, exit_iv)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TradeID, r.Side, r.EntryPrice, r.ExitPrice, r.Quantity,
		r.OpenTime, r.CloseTime, r.PnL, r.ReturnPct, r.Reason,
		r.Partial, r.Strike, r.EntryIV, r.ExitIV,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (time, equity) VALUES (?, ?)`,
		e.Time, e.Equity,
	)
	return err
}

// ListExecutions returns all recorded executions in close-time order.
func (j *SQLiteJournal) ListExecutions() ([]ExecutionRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, side, entry_price, exit_price, quantity, open_time, close_time,
		       pnl, return_pct, reason, partial, strike, entry_iv, exit_iv
		FROM executions ORDER BY close_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []ExecutionRecord
	for rows.Next() {
		var r ExecutionRecord
		err := rows.Scan(&r.TradeID, &r.Side, &r.EntryPrice, &r.ExitPrice, &r.Quantity,
			&r.OpenTime, &r.CloseTime, &r.PnL, &r.ReturnPct, &r.Reason,
			&r.Partial, &r.Strike, &r.EntryIV, &r.ExitIV)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// ListEquity returns the recorded equity curve in time order.
func (j *SQLiteJournal) ListEquity() ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`SELECT time, equity FROM equity ORDER BY time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Equity); err != nil {
			return nil, err
		}
		snaps = append(snaps, e)
	}
	return snaps, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
