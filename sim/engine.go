package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/raviyer/optsim/greeks"
	"github.com/raviyer/optsim/journal"
	"github.com/raviyer/optsim/market"
	"github.com/raviyer/optsim/strategies"
)

// SignalGenerator is the strategy surface the engine drives. It is
// called once per bar while flat.
type SignalGenerator interface {
	Generate(bar market.SyncedBar, underlying, option []market.Candle) (strategies.Signal, *strategies.SignalDetails)
	Reset()
}

// EngineConfig controls the replay run.
type EngineConfig struct {
	InitialCapital float64
	// LotSize is the quantity opened per entry, in lots.
	LotSize float64

	// Greeks gating at entry. When EnableGreeks is false no greeks are
	// computed and entries are not filtered.
	EnableGreeks bool
	MinDelta     float64
	MaxDelta     float64
	MaxIVPct     float64

	// DefaultTTEDays is used when no expiry date is known.
	DefaultTTEDays float64
}

// DefaultEngineConfig: 1 lakh capital, 50-unit lots, delta band
// 0.35-0.70, 80% IV ceiling, 5-day expiry fallback.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		InitialCapital: 100_000,
		LotSize:        50,
		EnableGreeks:   true,
		MinDelta:       0.35,
		MaxDelta:       0.70,
		MaxIVPct:       80,
		DefaultTTEDays: 5,
	}
}

func (c EngineConfig) validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("engine: initial capital must be positive, got %.2f", c.InitialCapital)
	}
	if c.LotSize <= 0 {
		return fmt.Errorf("engine: lot size must be positive, got %.2f", c.LotSize)
	}
	if c.EnableGreeks {
		if c.MinDelta < 0 || c.MaxDelta <= c.MinDelta {
			return fmt.Errorf("engine: delta band [%.2f, %.2f] is invalid", c.MinDelta, c.MaxDelta)
		}
		if c.MaxIVPct <= 0 {
			return fmt.Errorf("engine: max IV must be positive, got %.2f", c.MaxIVPct)
		}
	}
	if c.DefaultTTEDays <= 0 {
		return fmt.Errorf("engine: default tte days must be positive, got %.2f", c.DefaultTTEDays)
	}
	return nil
}

// Engine replays a strictly time-ordered sequence of SyncedBars,
// driving the strategy while flat and the position book while open.
// It owns the trade ledger and the equity curve exclusively; both are
// append-only.
type Engine struct {
	cfg      EngineConfig
	strat    SignalGenerator
	book     *Book
	gre      *greeks.Engine
	selector StrikeSelector

	journal journal.Journal
	obs     Observer

	capital  float64
	realized float64
	trades   []Trade
	equity   []EquityPoint

	underHist []market.Candle
	optHist   []market.Candle
}

func NewEngine(cfg EngineConfig, strat SignalGenerator, book *Book, gre *greeks.Engine, selector StrikeSelector) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if strat == nil {
		return nil, fmt.Errorf("engine: strategy is required")
	}
	if book == nil {
		return nil, fmt.Errorf("engine: book is required")
	}
	if cfg.EnableGreeks && gre == nil {
		return nil, fmt.Errorf("engine: greeks engine is required when greeks are enabled")
	}
	return &Engine{
		cfg:      cfg,
		strat:    strat,
		book:     book,
		gre:      gre,
		selector: selector,
		obs:      NopObserver{},
	}, nil
}

// SetJournal attaches an execution/equity journal. Optional.
func (e *Engine) SetJournal(j journal.Journal) { e.journal = j }

// SetObserver attaches a lifecycle observer. Optional.
func (e *Engine) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	e.obs = o
}

// Run replays the feed to completion and reduces the ledger into a
// Report. contracts and expiry are optional: without contracts the
// entry strike falls back to spot, without expiry days-to-expiry falls
// back to the configured default.
//
// Cancellation is honored at bar boundaries only: a cancelled context
// stops the replay, forces a full exit at the last seen price, and
// returns the report alongside ctx.Err().
func (e *Engine) Run(ctx context.Context, feed market.BarFeed, contracts []market.Contract, expiry string) (*Report, error) {
	defer feed.Close()

	e.capital = e.cfg.InitialCapital
	e.realized = 0
	e.trades = nil
	e.equity = nil
	e.underHist = nil
	e.optHist = nil
	e.strat.Reset()

	var expiryTime time.Time
	if expiry != "" {
		t, err := time.ParseInLocation("2006-01-02", expiry, market.IST)
		if err != nil {
			return nil, fmt.Errorf("engine: bad expiry date %q: %w", expiry, err)
		}
		expiryTime = t
	}
	strikes := market.Strikes(contracts)

	var (
		lastBar   market.SyncedBar
		haveBar   bool
		cancelled bool
	)

	for {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		bar, ok, err := feed.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if haveBar && !bar.Time.After(lastBar.Time) {
			return nil, fmt.Errorf("engine: bars out of order at %s", bar.Time)
		}
		lastBar = bar
		haveBar = true

		e.underHist = append(e.underHist, bar.Underlying)
		e.optHist = append(e.optHist, bar.Option)

		tte := e.daysToExpiry(bar.Time, expiryTime)

		// Greeks snapshot of the live position, recorded on exits.
		var curGreeks *greeks.Greeks
		if e.cfg.EnableGreeks && !e.book.Flat() {
			p := e.book.Position()
			g := e.gre.Snapshot(bar.Option.Close, bar.Underlying.Close, p.Strike, tte, optionTypeFor(p.Side))
			curGreeks = &g
		}

		if err := e.markEquity(bar); err != nil {
			return nil, err
		}

		if !e.book.Flat() {
			if err := e.manageExit(bar, curGreeks); err != nil {
				return nil, err
			}
			continue
		}

		if err := e.tryEntry(bar, strikes, tte); err != nil {
			return nil, err
		}
	}

	// Anything still open is flattened at the last available price.
	if !e.book.Flat() && haveBar {
		var exitG *greeks.Greeks
		if e.cfg.EnableGreeks {
			p := e.book.Position()
			tte := e.daysToExpiry(lastBar.Time, expiryTime)
			g := e.gre.Snapshot(lastBar.Option.Close, lastBar.Underlying.Close, p.Strike, tte, optionTypeFor(p.Side))
			exitG = &g
		}
		t := e.book.Close(lastBar, ExitEndOfData, exitG)
		if err := e.applyExit(t); err != nil {
			return nil, err
		}
	}

	report := BuildReport(e.cfg.InitialCapital, e.capital, e.realized, e.trades, e.equity)
	e.obs.OnRunEnd(report)

	if cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

func (e *Engine) markEquity(bar market.SyncedBar) error {
	equity := e.capital + e.realized + e.book.Unrealized(bar.Option.Close)
	pt := EquityPoint{Time: bar.Time, Equity: equity}
	e.equity = append(e.equity, pt)

	if e.journal != nil {
		return e.journal.RecordEquity(journal.EquitySnapshot{Time: pt.Time, Equity: pt.Equity})
	}
	return nil
}

func (e *Engine) manageExit(bar market.SyncedBar, curGreeks *greeks.Greeks) error {
	reason, hit := e.book.CheckExit(bar, e.optHist)
	if !hit {
		return nil
	}

	if reason == ExitPartialTarget {
		t, ok := e.book.PartialExit(bar)
		if !ok {
			// Computed partial quantity was zero; skip without failing
			// the bar.
			return nil
		}
		return e.applyPartial(t)
	}

	t := e.book.Close(bar, reason, curGreeks)
	return e.applyExit(t)
}

func (e *Engine) tryEntry(bar market.SyncedBar, strikes []float64, tte float64) error {
	sig, details := e.strat.Generate(bar, e.underHist, e.optHist)
	if sig == strategies.Hold {
		return nil
	}

	side := Buy
	if sig == strategies.Sell {
		side = Sell
	}
	typ := optionTypeFor(side)
	spot := bar.Underlying.Close

	strike := spot
	if len(strikes) > 0 {
		sel, err := e.selector.Select(spot, strikes, typ)
		if err != nil {
			e.obs.OnSkip(fmt.Sprintf("strike selection: %v", err))
			return nil
		}
		strike = sel
	}

	var entryG *greeks.Greeks
	if e.cfg.EnableGreeks {
		g := e.gre.Snapshot(bar.Option.Close, spot, strike, tte, typ)
		if d := math.Abs(g.Delta); d < e.cfg.MinDelta {
			e.obs.OnSkip(fmt.Sprintf("delta %.3f below %.2f (too far OTM)", d, e.cfg.MinDelta))
			return nil
		} else if d > e.cfg.MaxDelta {
			e.obs.OnSkip(fmt.Sprintf("delta %.3f above %.2f (too deep ITM)", d, e.cfg.MaxDelta))
			return nil
		}
		if g.IV > e.cfg.MaxIVPct {
			e.obs.OnSkip(fmt.Sprintf("IV %.1f%% above %.1f%%", g.IV, e.cfg.MaxIVPct))
			return nil
		}
		entryG = &g
	}

	cost, err := e.book.Open(side, bar.Time, bar.Option.Close, bar.Option.Volume, e.cfg.LotSize, strike, entryG)
	if err != nil {
		e.obs.OnSkip(err.Error())
		return nil
	}
	e.realized -= cost

	e.obs.OnEntry(*e.book.Position(), details, cost)
	return nil
}

func (e *Engine) applyPartial(t Trade) error {
	e.realized += t.PnL
	e.capital += t.PnL
	e.trades = append(e.trades, t)

	if e.journal != nil {
		if err := e.journal.RecordExecution(executionRecord(t)); err != nil {
			return err
		}
	}
	e.obs.OnPartialExit(t, e.book.Position().Remaining)
	return nil
}

func (e *Engine) applyExit(t Trade) error {
	e.realized += t.PnL
	e.capital += t.PnL
	e.trades = append(e.trades, t)

	if e.journal != nil {
		if err := e.journal.RecordExecution(executionRecord(t)); err != nil {
			return err
		}
	}
	e.obs.OnExit(t, e.capital, e.realized)
	return nil
}

// daysToExpiry mirrors calendar-day arithmetic: whole days between the
// bar time and the expiry date, never below zero (clamping to a
// positive minimum happens inside the greeks engine).
func (e *Engine) daysToExpiry(barTime, expiry time.Time) float64 {
	if expiry.IsZero() {
		return e.cfg.DefaultTTEDays
	}
	days := math.Floor(expiry.Sub(barTime).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days
}

func optionTypeFor(s Side) greeks.OptionType {
	if s == Sell {
		return greeks.Put
	}
	return greeks.Call
}

func executionRecord(t Trade) journal.ExecutionRecord {
	rec := journal.ExecutionRecord{
		TradeID:    t.ID,
		Side:       t.Side.String(),
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Quantity:   t.Quantity,
		OpenTime:   t.EntryTime,
		CloseTime:  t.ExitTime,
		PnL:        t.PnL,
		ReturnPct:  t.ReturnPct,
		Reason:     string(t.Reason),
		Partial:    t.Partial,
		Strike:     t.Strike,
	}
	if t.EntryGreeks != nil {
		rec.EntryIV = t.EntryGreeks.IV
	}
	if t.ExitGreeks != nil {
		rec.ExitIV = t.ExitGreeks.IV
	}
	return rec
}
