// journal/journal.go
package journal

import "time"

// ExecutionRecord is one fill of the position book, either a partial
// exit or a full close.
type ExecutionRecord struct {
	TradeID    string
	Side       string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	OpenTime   time.Time
	CloseTime  time.Time
	PnL        float64
	ReturnPct  float64
	Reason     string
	Partial    bool
	Strike     float64
	EntryIV    float64
	ExitIV     float64
}

type EquitySnapshot struct {
	Time   time.Time
	Equity float64
}

type Journal interface {
	RecordExecution(ExecutionRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
