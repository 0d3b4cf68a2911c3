// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	execs  *csv.Writer
	equity *csv.Writer
	xf, ef *os.File
}

func NewCSV(executionsPath, equityPath string) (*CSVJournal, error) {
	xf, err := os.Create(executionsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		xf.Close()
		return nil, err
	}

	xw := csv.NewWriter(xf)
	ew := csv.NewWriter(ef)

	if err := xw.Write([]string{"trade_id", "side", "entry_price", "exit_price", "quantity", "open_time", "close_time", "pnl", "return_pct", "reason", "partial", "strike", "entry_iv", "exit_iv"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "equity"}); err != nil {
		return nil, err
	}

	xw.Flush()
	if err := xw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{xw, ew, xf, ef}, nil
}

func (j *CSVJournal) RecordExecution(r ExecutionRecord) error {
	err := j.execs.Write([]string{
		r.TradeID,
		r.Side,
		f(r.EntryPrice),
		f(r.ExitPrice),
		f(r.Quantity),
		r.OpenTime.Format(time.RFC3339),
		r.CloseTime.Format(time.RFC3339),
		f(r.PnL),
		f(r.ReturnPct),
		r.Reason,
		strconv.FormatBool(r.Partial),
		f(r.Strike),
		f(r.EntryIV),
		f(r.ExitIV),
	})
	if err != nil {
		return err
	}

	j.execs.Flush()
	return j.execs.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		f(e.Equity),
	})
	if err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.execs.Flush()
	if err := j.execs.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.xf.Close(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
