package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raviyer/optsim/greeks"
	"github.com/raviyer/optsim/market"
	"github.com/raviyer/optsim/strategies"
)

// scriptStrategy replays a fixed signal sequence, one per Generate
// call, then holds.
type scriptStrategy struct {
	signals []strategies.Signal
	i       int
}

func (s *scriptStrategy) Generate(bar market.SyncedBar, underlying, option []market.Candle) (strategies.Signal, *strategies.SignalDetails) {
	if s.i >= len(s.signals) {
		return strategies.Hold, nil
	}
	sig := s.signals[s.i]
	s.i++
	if sig == strategies.Hold {
		return sig, nil
	}
	return sig, &strategies.SignalDetails{Spot: bar.Underlying.Close}
}

func (s *scriptStrategy) Reset() { s.i = 0 }

// recordingObserver captures lifecycle callbacks for assertions.
type recordingObserver struct {
	entries  int
	partials int
	exits    int
	skips    []string
}

func (r *recordingObserver) OnEntry(Position, *strategies.SignalDetails, float64) { r.entries++ }
func (r *recordingObserver) OnPartialExit(Trade, float64)                         { r.partials++ }
func (r *recordingObserver) OnExit(Trade, float64, float64)                       { r.exits++ }
func (r *recordingObserver) OnSkip(reason string)                                 { r.skips = append(r.skips, reason) }
func (r *recordingObserver) OnRunEnd(*Report)                                     {}

func engineBar(minute int, open, high, low, close float64) market.SyncedBar {
	ts := time.Date(2025, 3, 10, 10, minute, 0, 0, market.IST)
	return market.SyncedBar{
		Time:       ts,
		Underlying: market.Candle{Time: ts, Open: 22500, High: 22520, Low: 22480, Close: 22500, Volume: 0},
		Option:     market.Candle{Time: ts, Open: open, High: high, Low: low, Close: close, Volume: 1000},
	}
}

func newTestEngine(t *testing.T, strat SignalGenerator, enableGreeks bool) *Engine {
	t.Helper()
	book, err := NewBook(DefaultBookConfig(), SlippageModel{}, CostModel{})
	require.NoError(t, err)

	cfg := EngineConfig{
		InitialCapital: 100_000,
		LotSize:        100,
		EnableGreeks:   enableGreeks,
		MinDelta:       0.35,
		MaxDelta:       0.70,
		MaxIVPct:       80,
		DefaultTTEDays: 5,
	}
	e, err := NewEngine(cfg, strat, book, greeks.NewEngine(), StrikeSelector{})
	require.NoError(t, err)
	return e
}

func TestEngine_EmptyFeed(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &scriptStrategy{}, false)
	report, err := e.Run(context.Background(), market.NewSliceFeed(nil), nil, "")
	require.NoError(t, err)

	assert.Equal(t, 100_000.0, report.InitialCapital)
	assert.Equal(t, 100_000.0, report.FinalCapital)
	assert.Zero(t, report.TotalTrades)
	assert.Empty(t, report.Trades)
	assert.Empty(t, report.EquityCurve)
}

func TestEngine_FullLifecycle(t *testing.T) {
	t.Parallel()

	// Buy on the second bar at 100 (stop 70, target 150, partial 130),
	// scale out half at the 1R touch, stop out at breakeven.
	strat := &scriptStrategy{signals: []strategies.Signal{strategies.Hold, strategies.Buy}}
	e := newTestEngine(t, strat, false)

	obs := &recordingObserver{}
	e.SetObserver(obs)

	bars := []market.SyncedBar{
		engineBar(0, 100, 101, 99, 100),
		engineBar(1, 100, 101, 99, 100),  // entry
		engineBar(2, 120, 131, 119, 130), // partial at 130
		engineBar(3, 112, 113, 99, 101),  // breakeven stop
		engineBar(4, 101, 102, 100, 101),
	}

	report, err := e.Run(context.Background(), market.NewSliceFeed(bars), nil, "")
	require.NoError(t, err)

	assert.Equal(t, 1, obs.entries)
	assert.Equal(t, 1, obs.partials)
	assert.Equal(t, 1, obs.exits)

	require.Len(t, report.Trades, 2)
	partial, full := report.Trades[0], report.Trades[1]
	assert.True(t, partial.Partial)
	assert.InDelta(t, 1500.0, partial.PnL, 1e-9)
	assert.False(t, full.Partial)
	assert.Equal(t, ExitStopLoss, full.Reason)
	assert.InDelta(t, 0.0, full.PnL, 1e-9)

	assert.Equal(t, 1, report.TotalTrades)
	assert.Equal(t, 2, report.TotalExecutions)
	assert.InDelta(t, 101_500.0, report.FinalCapital, 1e-9)
	assert.InDelta(t, 1500.0, report.TotalPnL, 1e-9)
	assert.Len(t, report.EquityCurve, len(bars))
}

func TestEngine_EndOfDataFlatten(t *testing.T) {
	t.Parallel()

	strat := &scriptStrategy{signals: []strategies.Signal{strategies.Buy}}
	e := newTestEngine(t, strat, false)

	bars := []market.SyncedBar{
		engineBar(0, 100, 101, 99, 100), // entry
		engineBar(1, 105, 106, 104, 105),
	}

	report, err := e.Run(context.Background(), market.NewSliceFeed(bars), nil, "")
	require.NoError(t, err)

	require.Len(t, report.Trades, 1)
	tr := report.Trades[0]
	assert.Equal(t, ExitEndOfData, tr.Reason)
	assert.Equal(t, 105.0, tr.ExitPrice) // last bar close
	assert.InDelta(t, 500.0, tr.PnL, 1e-9)
}

func TestEngine_OutOfOrderBars(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &scriptStrategy{}, false)

	bars := []market.SyncedBar{
		engineBar(5, 100, 101, 99, 100),
		engineBar(3, 100, 101, 99, 100),
	}

	_, err := e.Run(context.Background(), market.NewSliceFeed(bars), nil, "")
	assert.ErrorContains(t, err, "out of order")
}

func TestEngine_CancelledContext(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, &scriptStrategy{}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bars := []market.SyncedBar{engineBar(0, 100, 101, 99, 100)}
	report, err := e.Run(ctx, market.NewSliceFeed(bars), nil, "")

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Trades)
}

func TestEngine_GreeksGateSkipsEntry(t *testing.T) {
	t.Parallel()

	strat := &scriptStrategy{signals: []strategies.Signal{strategies.Buy}}
	e := newTestEngine(t, strat, true)

	obs := &recordingObserver{}
	e.SetObserver(obs)

	// Only a strike miles out of the money is available: its delta is
	// far below the floor, so the entry is rejected.
	contracts := []market.Contract{{StrikePrice: 30_000}}
	bars := []market.SyncedBar{engineBar(0, 100, 101, 99, 100)}

	report, err := e.Run(context.Background(), market.NewSliceFeed(bars), contracts, "2025-03-13")
	require.NoError(t, err)

	assert.Zero(t, obs.entries)
	require.NotEmpty(t, obs.skips)
	assert.Contains(t, obs.skips[0], "delta")
	assert.Empty(t, report.Trades)
}

func TestEngine_LedgerConsistency(t *testing.T) {
	t.Parallel()

	// With costs and slippage off, the final capital must equal the
	// initial capital plus the sum of trade P&L.
	strat := &scriptStrategy{signals: []strategies.Signal{
		strategies.Buy, strategies.Hold, strategies.Sell,
	}}
	e := newTestEngine(t, strat, false)

	bars := []market.SyncedBar{
		engineBar(0, 100, 101, 99, 100), // long entry
		engineBar(1, 145, 151, 144, 149),
		engineBar(2, 100, 101, 99, 100),
		engineBar(3, 125, 131, 124, 130),
		engineBar(4, 130, 131, 129, 130),
	}

	report, err := e.Run(context.Background(), market.NewSliceFeed(bars), nil, "")
	require.NoError(t, err)

	var sum float64
	for _, tr := range report.Trades {
		sum += tr.PnL
	}
	assert.InDelta(t, report.InitialCapital+sum, report.FinalCapital, 1e-9)
	assert.InDelta(t, sum, report.TotalPnL, 1e-9)
}

func TestNewEngine_Validation(t *testing.T) {
	t.Parallel()

	book, err := NewBook(DefaultBookConfig(), SlippageModel{}, CostModel{})
	require.NoError(t, err)

	_, err = NewEngine(EngineConfig{}, &scriptStrategy{}, book, nil, StrikeSelector{})
	assert.Error(t, err)

	cfg := DefaultEngineConfig()
	_, err = NewEngine(cfg, nil, book, greeks.NewEngine(), StrikeSelector{})
	assert.ErrorContains(t, err, "strategy")

	_, err = NewEngine(cfg, &scriptStrategy{}, book, nil, StrikeSelector{})
	assert.ErrorContains(t, err, "greeks")
}
