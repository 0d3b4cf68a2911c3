package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/raviyer/optsim/strategies"
)

// Observer receives lifecycle events from the engine at well-defined
// points. Simulation code never prints; presentation hangs off this
// interface.
type Observer interface {
	OnEntry(pos Position, details *strategies.SignalDetails, entryCost float64)
	OnPartialExit(t Trade, remaining float64)
	OnExit(t Trade, capital, realized float64)
	OnSkip(reason string)
	OnRunEnd(r *Report)
}

// NopObserver drops every event.
type NopObserver struct{}

func (NopObserver) OnEntry(Position, *strategies.SignalDetails, float64) {}
func (NopObserver) OnPartialExit(Trade, float64)                         {}
func (NopObserver) OnExit(Trade, float64, float64)                       {}
func (NopObserver) OnSkip(string)                                        {}
func (NopObserver) OnRunEnd(*Report)                                     {}

// LogObserver writes structured entries through logrus.
type LogObserver struct {
	log *logrus.Logger
}

func NewLogObserver(log *logrus.Logger) *LogObserver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogObserver{log: log}
}

func (o *LogObserver) OnEntry(pos Position, details *strategies.SignalDetails, entryCost float64) {
	fields := logrus.Fields{
		"side":           pos.Side.String(),
		"entry_price":    pos.EntryPrice,
		"quantity":       pos.Quantity,
		"stop_loss":      pos.StopLoss,
		"target":         pos.Target,
		"partial_target": pos.PartialTgt,
		"strike":         pos.Strike,
		"entry_cost":     entryCost,
	}
	if details != nil {
		fields["bias"] = string(details.Bias)
		fields["spot"] = details.Spot
		fields["vwap"] = details.VWAP
		fields["rsi"] = details.RSI
	}
	if pos.EntryGreeks != nil {
		fields["delta"] = pos.EntryGreeks.Delta
		fields["iv"] = pos.EntryGreeks.IV
	}
	o.log.WithFields(fields).Info("entry")
}

func (o *LogObserver) OnPartialExit(t Trade, remaining float64) {
	o.log.WithFields(logrus.Fields{
		"exit_price": t.ExitPrice,
		"quantity":   t.Quantity,
		"remaining":  remaining,
		"pnl":        t.PnL,
	}).Info("partial exit, stop to breakeven, trailing active")
}

func (o *LogObserver) OnExit(t Trade, capital, realized float64) {
	o.log.WithFields(logrus.Fields{
		"reason":     string(t.Reason),
		"entry":      t.EntryPrice,
		"exit":       t.ExitPrice,
		"quantity":   t.Quantity,
		"pnl":        t.PnL,
		"return_pct": t.ReturnPct,
		"capital":    capital,
		"realized":   realized,
	}).Info("exit")
}

func (o *LogObserver) OnSkip(reason string) {
	o.log.WithField("reason", reason).Debug("entry skipped")
}

func (o *LogObserver) OnRunEnd(r *Report) {
	o.log.WithFields(logrus.Fields{
		"trades":       r.TotalTrades,
		"executions":   r.TotalExecutions,
		"total_pnl":    r.TotalPnL,
		"return_pct":   r.TotalReturnPct,
		"max_drawdown": r.MaxDrawdownPct,
	}).Info("run complete")
}
