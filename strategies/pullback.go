package strategies

import (
	"fmt"
	"math"
	"time"

	"github.com/raviyer/optsim/indicators"
	"github.com/raviyer/optsim/market"
)

// PullbackConfig parameterizes the intraday pullback-continuation
// strategy. Zero values are invalid; start from DefaultPullbackConfig.
type PullbackConfig struct {
	// Trend bias EMAs, computed on bars aggregated AggregateRatio:1
	// from the fine series (3 five-minute bars per fifteen-minute bar).
	FastTrendPeriod int
	SlowTrendPeriod int
	AggregateRatio  int

	// Pullback EMAs on the fine series.
	FastPullPeriod int
	SlowPullPeriod int

	RSIPeriod        int
	RSIBullThreshold float64
	RSIBearThreshold float64

	// Pullback touch tolerance around the fast EMA: max of the flat
	// point tolerance and ATRToleranceFrac x ATR(ATRPeriod) when ATR
	// is computable.
	TolerancePoints  float64
	ATRPeriod        int
	ATRToleranceFrac float64

	VolumeSurgeMult float64
	VolumeLookback  int

	// MinCandles is the fine-bar history required before any signal.
	MinCandles int

	SessionWindows []Window
}

// DefaultPullbackConfig mirrors the live strategy's tuning for NIFTY
// intraday options: 15m EMA20/50 bias, 5m EMA9/21 pullback, RSI 55/45,
// morning and afternoon session windows.
func DefaultPullbackConfig() PullbackConfig {
	return PullbackConfig{
		FastTrendPeriod:  20,
		SlowTrendPeriod:  50,
		AggregateRatio:   3,
		FastPullPeriod:   9,
		SlowPullPeriod:   21,
		RSIPeriod:        14,
		RSIBullThreshold: 55,
		RSIBearThreshold: 45,
		TolerancePoints:  5.0,
		ATRPeriod:        14,
		ATRToleranceFrac: 0.25,
		VolumeSurgeMult:  1.2,
		VolumeLookback:   10,
		MinCandles:       100,
		SessionWindows: []Window{
			{Start: DayTime{9, 35}, End: DayTime{11, 30}},
			{Start: DayTime{13, 45}, End: DayTime{15, 10}},
		},
	}
}

// Pullback generates directional signals from underlying price history:
// higher-timeframe EMA trend bias gated by VWAP and RSI, confirmed by a
// pullback-and-break pattern on the fine timeframe with a volume surge.
//
// It keeps only de-duplication state between calls; everything else is
// recomputed from the history each bar.
type Pullback struct {
	cfg PullbackConfig

	lastSignal Signal
	lastBar    time.Time
}

func NewPullback(cfg PullbackConfig) (*Pullback, error) {
	if cfg.FastTrendPeriod <= 0 || cfg.SlowTrendPeriod <= 0 ||
		cfg.FastPullPeriod <= 0 || cfg.SlowPullPeriod <= 0 {
		return nil, fmt.Errorf("pullback: EMA periods must be positive")
	}
	if cfg.FastTrendPeriod >= cfg.SlowTrendPeriod {
		return nil, fmt.Errorf("pullback: fast trend period %d must be below slow %d",
			cfg.FastTrendPeriod, cfg.SlowTrendPeriod)
	}
	if cfg.AggregateRatio < 1 {
		return nil, fmt.Errorf("pullback: aggregate ratio must be >= 1, got %d", cfg.AggregateRatio)
	}
	if cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("pullback: RSI period must be positive")
	}
	if cfg.RSIBearThreshold >= cfg.RSIBullThreshold {
		return nil, fmt.Errorf("pullback: RSI bear threshold %.1f must be below bull %.1f",
			cfg.RSIBearThreshold, cfg.RSIBullThreshold)
	}
	if cfg.MinCandles <= cfg.SlowPullPeriod {
		return nil, fmt.Errorf("pullback: min candles %d must exceed slow pullback period %d",
			cfg.MinCandles, cfg.SlowPullPeriod)
	}
	if len(cfg.SessionWindows) == 0 {
		return nil, fmt.Errorf("pullback: at least one session window required")
	}
	for _, w := range cfg.SessionWindows {
		if !w.Valid() {
			return nil, fmt.Errorf("pullback: invalid session window %s-%s", w.Start, w.End)
		}
	}
	return &Pullback{cfg: cfg}, nil
}

func (p *Pullback) Name() string {
	return fmt.Sprintf("PULLBACK(%d/%d,%d/%d)",
		p.cfg.FastTrendPeriod, p.cfg.SlowTrendPeriod,
		p.cfg.FastPullPeriod, p.cfg.SlowPullPeriod)
}

// Reset clears de-duplication state for a fresh run.
func (p *Pullback) Reset() {
	p.lastSignal = Hold
	p.lastBar = time.Time{}
}

// Generate evaluates the pipeline for the current bar. underlying and
// option are the full fine-granularity histories up to and including
// this bar. The SignalDetails snapshot is non-nil only on BUY/SELL.
func (p *Pullback) Generate(bar market.SyncedBar, underlying, option []market.Candle) (Signal, *SignalDetails) {
	if !p.inSession(bar.Time) {
		return Hold, nil
	}
	if len(underlying) < p.cfg.MinCandles {
		return Hold, nil
	}

	trendBars := market.Aggregate(underlying, p.cfg.AggregateRatio)
	if len(trendBars) < p.cfg.SlowTrendPeriod {
		return Hold, nil
	}

	vwap, err := indicators.VWAP(underlying)
	if err != nil {
		return Hold, nil
	}

	trendCloses := market.Closes(trendBars)
	bias, emaFastT, emaSlowT := p.trendBias(trendCloses, vwap)
	if bias == BiasNeutral {
		return Hold, nil
	}

	fineCloses := market.Closes(underlying)
	rsi, err := indicators.RSI(fineCloses, p.cfg.RSIPeriod)
	if err != nil {
		return Hold, nil
	}

	lastClose := fineCloses[len(fineCloses)-1]

	var sig Signal
	switch bias {
	case BiasBullish:
		if lastClose < vwap || rsi < p.cfg.RSIBullThreshold {
			return Hold, nil
		}
		sig = Buy
	case BiasBearish:
		if lastClose > vwap || rsi > p.cfg.RSIBearThreshold {
			return Hold, nil
		}
		sig = Sell
	}

	emaFastP, emaSlowP, ok := p.pullbackSetup(underlying, fineCloses, sig)
	if !ok {
		return Hold, nil
	}

	// Suppress repeats: same direction as the previous emitted signal,
	// or a second emission for the same bar.
	if sig == p.lastSignal || bar.Time.Equal(p.lastBar) {
		return Hold, nil
	}
	p.lastSignal = sig
	p.lastBar = bar.Time

	details := &SignalDetails{
		Bias:       bias,
		Spot:       lastClose,
		VWAP:       vwap,
		RSI:        rsi,
		EMA20M15:   emaFastT,
		EMA50M15:   emaSlowT,
		EMA9M5:     emaFastP,
		EMA21M5:    emaSlowP,
		LastCandle: underlying[len(underlying)-1],
	}
	if len(underlying) > 1 {
		details.PrevCandle = underlying[len(underlying)-2]
	}
	return sig, details
}

func (p *Pullback) inSession(t time.Time) bool {
	for _, w := range p.cfg.SessionWindows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// trendBias reads the higher-timeframe trend from the fast/slow EMA
// pair against session VWAP.
//
// Bullish slope is checked against the fast EMA's own previous value;
// bearish slope is checked against the SLOW EMA's previous value. The
// asymmetry matches the corrected live strategy and is intentional.
func (p *Pullback) trendBias(closes []float64, vwap float64) (Bias, float64, float64) {
	fastSeries, err := indicators.EMASeries(closes, p.cfg.FastTrendPeriod)
	if err != nil {
		return BiasNeutral, 0, 0
	}
	slowSeries, err := indicators.EMASeries(closes, p.cfg.SlowTrendPeriod)
	if err != nil {
		return BiasNeutral, 0, 0
	}

	fast, fastPrev := indicators.Last(fastSeries)
	slow, slowPrev := indicators.Last(slowSeries)
	lastClose := closes[len(closes)-1]

	switch {
	case fast > slow && fast >= fastPrev && lastClose >= vwap:
		return BiasBullish, fast, slow
	case fast < slow && fast <= slowPrev && lastClose <= vwap:
		return BiasBearish, fast, slow
	}
	return BiasNeutral, fast, slow
}

// pullbackSetup confirms the entry pattern on fine candles: trend-side
// EMA stack, a with-trend candle closing beyond the fast EMA and the
// previous bar's extreme, a recent touch of the fast EMA within
// tolerance, and a volume surge.
func (p *Pullback) pullbackSetup(candles []market.Candle, closes []float64, side Signal) (emaFast, emaSlow float64, ok bool) {
	if len(candles) < 3 {
		return 0, 0, false
	}

	emaFast, err := indicators.EMA(closes, p.cfg.FastPullPeriod)
	if err != nil {
		return 0, 0, false
	}
	emaSlow, err = indicators.EMA(closes, p.cfg.SlowPullPeriod)
	if err != nil {
		return 0, 0, false
	}

	tol := p.tolerance(candles)
	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	if side == Buy {
		if emaFast < emaSlow {
			return emaFast, emaSlow, false
		}
		if !last.Bullish() || last.Close <= emaFast || last.Close <= prev.High {
			return emaFast, emaSlow, false
		}
		touched := last.Low <= emaFast+tol || prev.Low <= emaFast+tol
		if !touched || !p.volumeSurge(candles) {
			return emaFast, emaSlow, false
		}
		return emaFast, emaSlow, true
	}

	if emaFast > emaSlow {
		return emaFast, emaSlow, false
	}
	if !last.Bearish() || last.Close >= emaFast || last.Close >= prev.Low {
		return emaFast, emaSlow, false
	}
	touched := last.High >= emaFast-tol || prev.High >= emaFast-tol
	if !touched || !p.volumeSurge(candles) {
		return emaFast, emaSlow, false
	}
	return emaFast, emaSlow, true
}

func (p *Pullback) tolerance(candles []market.Candle) float64 {
	atr, err := indicators.ATR(candles, p.cfg.ATRPeriod)
	if err != nil {
		return p.cfg.TolerancePoints
	}
	return math.Max(p.cfg.TolerancePoints, atr*p.cfg.ATRToleranceFrac)
}

// volumeSurge requires the latest volume to beat the trailing average
// by the configured multiplier. Passes when history is too short to
// judge.
func (p *Pullback) volumeSurge(candles []market.Candle) bool {
	lb := p.cfg.VolumeLookback
	if len(candles) < lb+1 {
		return true
	}
	recent := candles[len(candles)-1].Volume
	var sum float64
	for _, c := range candles[len(candles)-1-lb : len(candles)-1] {
		sum += c.Volume
	}
	return recent >= (sum/float64(lb))*p.cfg.VolumeSurgeMult
}
