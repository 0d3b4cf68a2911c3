package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raviyer/optsim/market"
)

// testConfig keeps periods tiny so scenarios stay hand-checkable. The
// huge tolerance and 1.0 surge multiplier neutralize the touch and
// volume gates unless a test tightens them.
func testConfig() PullbackConfig {
	return PullbackConfig{
		FastTrendPeriod:  3,
		SlowTrendPeriod:  5,
		AggregateRatio:   1,
		FastPullPeriod:   2,
		SlowPullPeriod:   3,
		RSIPeriod:        2,
		RSIBullThreshold: 55,
		RSIBearThreshold: 45,
		TolerancePoints:  1000,
		ATRPeriod:        200,
		ATRToleranceFrac: 0.25,
		VolumeSurgeMult:  1.0,
		VolumeLookback:   3,
		MinCandles:       10,
		SessionWindows: []Window{
			{Start: DayTime{9, 0}, End: DayTime{16, 0}},
		},
	}
}

func barAt(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, market.IST)
}

// risingCandles builds n bullish candles with strictly rising closes.
func risingCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		c := 100.0 + float64(i)
		out[i] = market.Candle{
			Time:   barAt(9, 40).Add(time.Duration(i) * time.Minute),
			Open:   c - 1,
			High:   c + 0.5,
			Low:    c - 1.5,
			Close:  c,
			Volume: 100,
		}
	}
	return out
}

// fallingCandles builds n bearish candles with strictly falling closes.
func fallingCandles(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		c := 100.0 + float64(n-1-i)
		out[i] = market.Candle{
			Time:   barAt(9, 40).Add(time.Duration(i) * time.Minute),
			Open:   c + 1,
			High:   c + 1.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 100,
		}
	}
	return out
}

func syncedBar(c market.Candle) market.SyncedBar {
	return market.SyncedBar{Time: c.Time, Underlying: c, Option: market.Candle{Time: c.Time, Close: 150, Volume: 1000}}
}

func TestNewPullback_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewPullback(PullbackConfig{})
	assert.Error(t, err)

	cfg := testConfig()
	cfg.FastTrendPeriod = cfg.SlowTrendPeriod
	_, err = NewPullback(cfg)
	assert.ErrorContains(t, err, "fast trend period")

	cfg = testConfig()
	cfg.MinCandles = cfg.SlowPullPeriod
	_, err = NewPullback(cfg)
	assert.ErrorContains(t, err, "min candles")

	cfg = testConfig()
	cfg.SessionWindows = nil
	_, err = NewPullback(cfg)
	assert.ErrorContains(t, err, "session window")
}

func TestGenerate_OutsideSession(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SessionWindows = []Window{{Start: DayTime{9, 35}, End: DayTime{11, 30}}}
	p, err := NewPullback(cfg)
	require.NoError(t, err)

	candles := risingCandles(12)
	last := candles[len(candles)-1]
	last.Time = barAt(12, 0)

	sig, details := p.Generate(syncedBar(last), candles, nil)
	assert.Equal(t, Hold, sig)
	assert.Nil(t, details)
}

func TestGenerate_InsufficientHistory(t *testing.T) {
	t.Parallel()

	p, err := NewPullback(testConfig())
	require.NoError(t, err)

	candles := risingCandles(9) // MinCandles is 10
	sig, _ := p.Generate(syncedBar(candles[len(candles)-1]), candles, nil)
	assert.Equal(t, Hold, sig)
}

func TestGenerate_BullishPullbackFires(t *testing.T) {
	t.Parallel()

	p, err := NewPullback(testConfig())
	require.NoError(t, err)

	candles := risingCandles(12)
	last := candles[len(candles)-1]

	sig, details := p.Generate(syncedBar(last), candles, nil)
	require.Equal(t, Buy, sig)
	require.NotNil(t, details)

	assert.Equal(t, BiasBullish, details.Bias)
	assert.Equal(t, last.Close, details.Spot)
	assert.GreaterOrEqual(t, details.Spot, details.VWAP)
	assert.GreaterOrEqual(t, details.RSI, 55.0)
	assert.Greater(t, details.EMA20M15, details.EMA50M15)
	assert.Equal(t, last, details.LastCandle)
	assert.Equal(t, candles[len(candles)-2], details.PrevCandle)
}

func TestGenerate_BearishPullbackFires(t *testing.T) {
	t.Parallel()

	p, err := NewPullback(testConfig())
	require.NoError(t, err)

	candles := fallingCandles(12)
	last := candles[len(candles)-1]

	sig, details := p.Generate(syncedBar(last), candles, nil)
	require.Equal(t, Sell, sig)
	require.NotNil(t, details)
	assert.Equal(t, BiasBearish, details.Bias)
	assert.LessOrEqual(t, details.RSI, 45.0)
}

func TestGenerate_SuppressesRepeats(t *testing.T) {
	t.Parallel()

	p, err := NewPullback(testConfig())
	require.NoError(t, err)

	candles := risingCandles(12)
	sig, _ := p.Generate(syncedBar(candles[len(candles)-1]), candles, nil)
	require.Equal(t, Buy, sig)

	// Same bar again
	sig, _ = p.Generate(syncedBar(candles[len(candles)-1]), candles, nil)
	assert.Equal(t, Hold, sig)

	// Next bar still trending up: same direction is suppressed until an
	// opposite signal fires.
	more := risingCandles(13)
	sig, _ = p.Generate(syncedBar(more[len(more)-1]), more, nil)
	assert.Equal(t, Hold, sig)
}

func TestGenerate_ResetClearsDedup(t *testing.T) {
	t.Parallel()

	p, err := NewPullback(testConfig())
	require.NoError(t, err)

	candles := risingCandles(12)
	sig, _ := p.Generate(syncedBar(candles[len(candles)-1]), candles, nil)
	require.Equal(t, Buy, sig)

	p.Reset()
	sig, _ = p.Generate(syncedBar(candles[len(candles)-1]), candles, nil)
	assert.Equal(t, Buy, sig)
}

func TestGenerate_VolumeSurgeGate(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.VolumeSurgeMult = 1.5
	p, err := NewPullback(cfg)
	require.NoError(t, err)

	// Flat volume cannot beat a 1.5x surge requirement.
	candles := risingCandles(12)
	sig, _ := p.Generate(syncedBar(candles[len(candles)-1]), candles, nil)
	assert.Equal(t, Hold, sig)

	// A spike on the last bar satisfies it.
	candles[len(candles)-1].Volume = 200
	p.Reset()
	sig, _ = p.Generate(syncedBar(candles[len(candles)-1]), candles, nil)
	assert.Equal(t, Buy, sig)
}

func TestTrendBias_Asymmetry(t *testing.T) {
	t.Parallel()

	p, err := NewPullback(testConfig())
	require.NoError(t, err)

	rising := market.Closes(risingCandles(12))
	bias, fast, slow := p.trendBias(rising, 0)
	assert.Equal(t, BiasBullish, bias)
	assert.Greater(t, fast, slow)

	falling := market.Closes(fallingCandles(12))
	bias, fast, slow = p.trendBias(falling, 1000)
	assert.Equal(t, BiasBearish, bias)
	assert.Less(t, fast, slow)

	flat := make([]float64, 12)
	for i := range flat {
		flat[i] = 100
	}
	// flat series: fast == slow fails both strict comparisons
	bias, _, _ = p.trendBias(flat, 100)
	assert.Equal(t, BiasNeutral, bias)
}

func TestDayTimeAndWindow(t *testing.T) {
	t.Parallel()

	d := DayTime{Hour: 15, Minute: 10}
	assert.True(t, d.Reached(barAt(15, 10)))
	assert.True(t, d.Reached(barAt(15, 30)))
	assert.False(t, d.Reached(barAt(15, 9)))
	assert.Equal(t, "15:10", d.String())

	w := Window{Start: DayTime{9, 35}, End: DayTime{11, 30}}
	assert.True(t, w.Valid())
	assert.True(t, w.Contains(barAt(9, 35)))
	assert.True(t, w.Contains(barAt(11, 30)))
	assert.False(t, w.Contains(barAt(11, 31)))
	assert.False(t, w.Contains(barAt(9, 34)))
}
