package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/raviyer/optsim/greeks"
	"github.com/raviyer/optsim/indicators"
	"github.com/raviyer/optsim/internal/id"
	"github.com/raviyer/optsim/market"
	"github.com/raviyer/optsim/strategies"
)

// Position is the one live position. remaining quantity, the stop and
// the two lifecycle flags are the only fields that mutate after entry.
//
// Invariants: 0 <= Remaining <= Quantity, and once PartialDone is set
// the stop sits at the entry price with trailing active.
type Position struct {
	Side        Side
	EntryPrice  float64
	EntryTime   time.Time
	Quantity    float64
	Remaining   float64
	StopLoss    float64
	Target      float64
	PartialTgt  float64
	RiskPerUnit float64
	Strike      float64
	EntryGreeks *greeks.Greeks

	PartialDone    bool
	TrailingActive bool
}

// BookConfig parameterizes the position lifecycle.
type BookConfig struct {
	// StopLossPct and TargetPct are premium percentages (30 means a
	// 30% stop below a long entry).
	StopLossPct float64
	TargetPct   float64
	// PartialFraction of remaining quantity closed at the 1R target.
	PartialFraction float64
	// Trailing stop: EMA(TrailEMAPeriod) of the option premium shifted
	// by TrailingBufferPct against the position.
	TrailingBufferPct float64
	TrailEMAPeriod    int
	// Forced intraday exits, exchange time. FlattenTime fires first;
	// HardExitTime is the absolute backstop near the close.
	FlattenTime  strategies.DayTime
	HardExitTime strategies.DayTime
}

// DefaultBookConfig: 30% stop, 50% target, half out at 1R, 4% trailing
// buffer on premium EMA9, flatten 15:10, hard exit 15:20 IST.
func DefaultBookConfig() BookConfig {
	return BookConfig{
		StopLossPct:       30,
		TargetPct:         50,
		PartialFraction:   0.5,
		TrailingBufferPct: 0.04,
		TrailEMAPeriod:    9,
		FlattenTime:       strategies.DayTime{Hour: 15, Minute: 10},
		HardExitTime:      strategies.DayTime{Hour: 15, Minute: 20},
	}
}

func (c BookConfig) validate() error {
	if c.StopLossPct <= 0 || c.StopLossPct >= 100 {
		return fmt.Errorf("book: stop loss pct must be in (0,100), got %.2f", c.StopLossPct)
	}
	if c.TargetPct <= 0 {
		return fmt.Errorf("book: target pct must be positive, got %.2f", c.TargetPct)
	}
	if c.PartialFraction <= 0 || c.PartialFraction >= 1 {
		return fmt.Errorf("book: partial fraction must be in (0,1), got %.2f", c.PartialFraction)
	}
	if c.TrailingBufferPct <= 0 || c.TrailingBufferPct >= 1 {
		return fmt.Errorf("book: trailing buffer must be in (0,1), got %.2f", c.TrailingBufferPct)
	}
	if c.TrailEMAPeriod <= 0 {
		return fmt.Errorf("book: trail EMA period must be positive, got %d", c.TrailEMAPeriod)
	}
	if !c.FlattenTime.Valid() || !c.HardExitTime.Valid() {
		return fmt.Errorf("book: invalid flatten/hard exit time")
	}
	if c.FlattenTime.Minutes() >= c.HardExitTime.Minutes() {
		return fmt.Errorf("book: flatten time %s must precede hard exit %s",
			c.FlattenTime, c.HardExitTime)
	}
	return nil
}

// Book owns the single live position and the rules that evolve it from
// entry through partial exit, breakeven, trailing and final exit. It is
// the only component allowed to mutate a Position.
type Book struct {
	cfg   BookConfig
	slip  SlippageModel
	costs CostModel

	pos *Position
}

func NewBook(cfg BookConfig, slip SlippageModel, costs CostModel) (*Book, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Book{cfg: cfg, slip: slip, costs: costs}, nil
}

// Flat reports whether no position is open.
func (b *Book) Flat() bool { return b.pos == nil }

// Position returns the live position, nil when flat. Callers must not
// mutate it.
func (b *Book) Position() *Position { return b.pos }

// Open enters a position: slippage-adjusts the base price, derives the
// stop, target and 1R partial target symmetric to the side, and returns
// the entry cost (half the round-trip) to debit against realized P&L.
//
// A second Open while a position exists is a programming error and
// panics: exactly zero or one Position may exist at any time.
func (b *Book) Open(side Side, t time.Time, basePrice, volume, quantity, strike float64, g *greeks.Greeks) (entryCost float64, err error) {
	if b.pos != nil {
		panic("sim: Open called with a live position")
	}
	if basePrice <= 0 {
		return 0, fmt.Errorf("book: non-positive entry price %.2f", basePrice)
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("book: non-positive quantity %.2f", quantity)
	}

	entry := b.slip.Adjust(basePrice, side, quantity, volume)

	var stop, target float64
	if side == Buy {
		stop = entry * (1 - b.cfg.StopLossPct/100)
		target = entry * (1 + b.cfg.TargetPct/100)
	} else {
		stop = entry * (1 + b.cfg.StopLossPct/100)
		target = entry * (1 - b.cfg.TargetPct/100)
	}

	risk := math.Abs(entry - stop)
	partial := entry + float64(side)*risk

	b.pos = &Position{
		Side:        side,
		EntryPrice:  entry,
		EntryTime:   t,
		Quantity:    quantity,
		Remaining:   quantity,
		StopLoss:    stop,
		Target:      target,
		PartialTgt:  partial,
		RiskPerUnit: risk,
		Strike:      strike,
		EntryGreeks: g,
	}

	return b.costs.RoundTrip(entry, entry, quantity) / 2, nil
}

// CheckExit evaluates the exit rules for the current bar in strict
// precedence order; the first match wins regardless of magnitude:
// hard exit, EOD flatten, stop loss, partial target, final target,
// trailing stop.
func (b *Book) CheckExit(bar market.SyncedBar, optionHistory []market.Candle) (ExitReason, bool) {
	if b.pos == nil {
		return "", false
	}
	p := b.pos
	opt := bar.Option

	if b.cfg.HardExitTime.Reached(bar.Time) {
		return ExitHard, true
	}
	if b.cfg.FlattenTime.Reached(bar.Time) {
		return ExitEODFlatten, true
	}

	if p.Side == Buy {
		if opt.Low <= p.StopLoss {
			return ExitStopLoss, true
		}
		if !p.PartialDone && opt.High >= p.PartialTgt {
			return ExitPartialTarget, true
		}
		if opt.High >= p.Target {
			return ExitTarget, true
		}
	} else {
		if opt.High >= p.StopLoss {
			return ExitStopLoss, true
		}
		if !p.PartialDone && opt.Low <= p.PartialTgt {
			return ExitPartialTarget, true
		}
		if opt.Low <= p.Target {
			return ExitTarget, true
		}
	}

	if p.TrailingActive {
		if trail, ok := b.trailingStop(optionHistory); ok {
			if p.Side == Buy && opt.Close < trail {
				return ExitTrailingStop, true
			}
			if p.Side == Sell && opt.Close > trail {
				return ExitTrailingStop, true
			}
		}
	}

	return "", false
}

// trailingStop derives the stop from the premium EMA shifted by the
// buffer against the position. Unavailable until the option history
// covers the EMA period.
func (b *Book) trailingStop(optionHistory []market.Candle) (float64, bool) {
	ema, err := indicators.EMA(market.Closes(optionHistory), b.cfg.TrailEMAPeriod)
	if err != nil {
		return 0, false
	}
	buffer := ema * b.cfg.TrailingBufferPct
	if b.pos.Side == Buy {
		return ema - buffer, true
	}
	return ema + buffer, true
}

// PartialExit scales out the configured fraction of remaining quantity
// at the 1R target, moves the stop to breakeven and activates trailing.
// Returns ok=false when the computed quantity rounds down to zero (the
// partial is skipped without failing the bar).
//
// Partial exits carry no transaction-cost debit; only entries and full
// exits are charged.
func (b *Book) PartialExit(bar market.SyncedBar) (Trade, bool) {
	p := b.pos
	if p == nil || p.PartialDone {
		return Trade{}, false
	}

	qty := math.Floor(p.Remaining * b.cfg.PartialFraction)
	if qty <= 0 {
		return Trade{}, false
	}

	exit := b.slip.Adjust(p.PartialTgt, p.Side.Opposite(), qty, bar.Option.Volume)
	pnl := float64(p.Side) * (exit - p.EntryPrice) * qty

	p.Remaining -= qty
	p.PartialDone = true
	p.TrailingActive = true
	p.StopLoss = p.EntryPrice // breakeven

	return Trade{
		ID:          id.New(),
		EntryTime:   p.EntryTime,
		ExitTime:    bar.Time,
		Side:        p.Side,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   exit,
		Quantity:    qty,
		PnL:         pnl,
		ReturnPct:   pnl / (p.EntryPrice * qty) * 100,
		Reason:      ExitPartialTarget,
		Partial:     true,
		Strike:      p.Strike,
		EntryGreeks: p.EntryGreeks,
	}, true
}

// Close fully exits the remaining quantity. The exit price is resolved
// by reason (stop price for STOP_LOSS, target price for TARGET, bar
// close otherwise), slippage-adjusted with the opposing side, and half
// the round-trip cost is debited inside the trade P&L. The position is
// cleared.
func (b *Book) Close(bar market.SyncedBar, reason ExitReason, exitGreeks *greeks.Greeks) Trade {
	p := b.pos
	if p == nil {
		panic("sim: Close called while flat")
	}

	base := bar.Option.Close
	switch reason {
	case ExitStopLoss:
		base = p.StopLoss
	case ExitTarget:
		base = p.Target
	}

	qty := p.Remaining
	exit := b.slip.Adjust(base, p.Side.Opposite(), qty, bar.Option.Volume)

	pnl := float64(p.Side) * (exit - p.EntryPrice) * qty
	pnl -= b.costs.RoundTrip(p.EntryPrice, exit, qty) / 2

	t := Trade{
		ID:          id.New(),
		EntryTime:   p.EntryTime,
		ExitTime:    bar.Time,
		Side:        p.Side,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   exit,
		Quantity:    qty,
		PnL:         pnl,
		ReturnPct:   pnl / (p.EntryPrice * qty) * 100,
		Reason:      reason,
		Strike:      p.Strike,
		EntryGreeks: p.EntryGreeks,
		ExitGreeks:  exitGreeks,
	}

	b.pos = nil
	return t
}

// Unrealized marks the remaining quantity to the given premium.
func (b *Book) Unrealized(price float64) float64 {
	if b.pos == nil {
		return 0
	}
	return float64(b.pos.Side) * (price - b.pos.EntryPrice) * b.pos.Remaining
}
