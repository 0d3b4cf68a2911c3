// Package sim is the replay simulator: execution realism models
// (slippage, transaction costs, strike selection), the single-position
// state machine, the bar-loop engine and the performance report.
package sim

import (
	"time"

	"github.com/raviyer/optsim/greeks"
)

// Side of the opening order. The numeric value is the P&L direction
// multiplier.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Opposite is the closing side for an open position.
func (s Side) Opposite() Side { return -s }

// ExitReason identifies which exit rule fired. Values are stable, they
// appear in journals and saved reports.
type ExitReason string

const (
	ExitHard          ExitReason = "HARD_EXIT"
	ExitEODFlatten    ExitReason = "EOD_FLATTEN"
	ExitStopLoss      ExitReason = "STOP_LOSS"
	ExitPartialTarget ExitReason = "PARTIAL_TARGET"
	ExitTarget        ExitReason = "TARGET"
	ExitTrailingStop  ExitReason = "TRAILING_STOP"
	ExitEndOfData     ExitReason = "END_OF_DATA"
)

// Trade is one execution record, appended to the ledger on every exit,
// partial or full. Immutable once appended.
type Trade struct {
	ID          string         `json:"id"`
	EntryTime   time.Time      `json:"entry_time"`
	ExitTime    time.Time      `json:"exit_time"`
	Side        Side           `json:"side"`
	EntryPrice  float64        `json:"entry_price"`
	ExitPrice   float64        `json:"exit_price"`
	Quantity    float64        `json:"quantity"`
	PnL         float64        `json:"pnl"`
	ReturnPct   float64        `json:"return_pct"`
	Reason      ExitReason     `json:"exit_reason"`
	Partial     bool           `json:"partial"`
	Strike      float64        `json:"strike,omitempty"`
	EntryGreeks *greeks.Greeks `json:"entry_greeks,omitempty"`
	ExitGreeks  *greeks.Greeks `json:"exit_greeks,omitempty"`
}

// EquityPoint is one mark-to-market sample, appended every bar.
type EquityPoint struct {
	Time   time.Time `json:"timestamp"`
	Equity float64   `json:"equity"`
}
