package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Report is the reduction of one replay run: headline stats, the full
// execution ledger, and the per-bar equity curve.
type Report struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalPnL       float64 `json:"total_pnl"`
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`

	// TotalTrades counts completed round trips; TotalExecutions also
	// counts partial exits.
	TotalTrades     int `json:"total_trades"`
	TotalExecutions int `json:"total_executions"`

	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	ProfitFactor  float64 `json:"profit_factor"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"`

	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
}

// BuildReport folds the trade ledger and equity curve into a Report.
// Win/loss stats are per execution; the trade count excludes partials.
func BuildReport(initial, final, realized float64, trades []Trade, equity []EquityPoint) *Report {
	r := &Report{
		InitialCapital: initial,
		FinalCapital:   final,
		TotalPnL:       realized,
		Trades:         trades,
		EquityCurve:    equity,
	}
	if initial != 0 {
		r.TotalReturnPct = realized / initial * 100
	}

	var grossWin, grossLoss float64
	for _, t := range trades {
		r.TotalExecutions++
		if !t.Partial {
			r.TotalTrades++
		}
		switch {
		case t.PnL > 0:
			r.WinningTrades++
			grossWin += t.PnL
			if t.PnL > r.LargestWin {
				r.LargestWin = t.PnL
			}
		case t.PnL < 0:
			r.LosingTrades++
			grossLoss += t.PnL
			if t.PnL < r.LargestLoss {
				r.LargestLoss = t.PnL
			}
		}
	}
	if r.TotalExecutions > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalExecutions) * 100
	}
	if r.WinningTrades > 0 {
		r.AvgWin = grossWin / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = grossLoss / float64(r.LosingTrades)
	}
	if grossLoss != 0 {
		r.ProfitFactor = math.Abs(grossWin / grossLoss)
	}

	r.MaxDrawdownPct = maxDrawdownPct(initial, equity)
	return r
}

// maxDrawdownPct walks the equity curve tracking the running peak,
// which starts at the initial capital.
func maxDrawdownPct(initial float64, equity []EquityPoint) float64 {
	peak := initial
	var maxDD float64
	for _, pt := range equity {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - pt.Equity) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}

// LoadReport reads a report previously written by Save.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: parse %s: %w", path, err)
	}
	return &r, nil
}

// PrintReport writes a human readable summary.
func PrintReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Backtest Results\n")
	fmt.Fprintf(w, "================\n")
	fmt.Fprintf(w, "Initial Capital:  %12.2f\n", r.InitialCapital)
	fmt.Fprintf(w, "Final Capital:    %12.2f\n", r.FinalCapital)
	fmt.Fprintf(w, "Total P&L:        %12.2f (%.2f%%)\n", r.TotalPnL, r.TotalReturnPct)
	fmt.Fprintf(w, "Max Drawdown:     %11.2f%%\n", r.MaxDrawdownPct)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Trades:           %6d (%d executions)\n", r.TotalTrades, r.TotalExecutions)
	fmt.Fprintf(w, "Winners/Losers:   %6d / %d\n", r.WinningTrades, r.LosingTrades)
	fmt.Fprintf(w, "Win Rate:         %9.2f%%\n", r.WinRate)
	fmt.Fprintf(w, "Avg Win:          %12.2f\n", r.AvgWin)
	fmt.Fprintf(w, "Avg Loss:         %12.2f\n", r.AvgLoss)
	fmt.Fprintf(w, "Profit Factor:    %12.2f\n", r.ProfitFactor)
	fmt.Fprintf(w, "Largest Win:      %12.2f\n", r.LargestWin)
	fmt.Fprintf(w, "Largest Loss:     %12.2f\n", r.LargestLoss)

	if len(r.Trades) > 0 {
		fmt.Fprintf(w, "\nExecutions\n")
		fmt.Fprintf(w, "----------\n")
		for _, t := range r.Trades {
			tag := ""
			if t.Partial {
				tag = " (partial)"
			}
			fmt.Fprintf(w, "%s  %-4s qty %-5.0f  %8.2f -> %8.2f  pnl %10.2f  %s%s\n",
				t.ExitTime.Format("2006-01-02 15:04"), t.Side, t.Quantity,
				t.EntryPrice, t.ExitPrice, t.PnL, t.Reason, tag)
		}
	}
}
