// Package market defines the bar-level data model for the replay engine:
// OHLCV candles, synchronized underlying/option bars, and bar feeds.
package market

import "time"

// IST is the exchange timezone. All session-window and expiry math is
// done in this zone.
var IST = time.FixedZone("IST", 5*3600+1800)

// Candle is one OHLCV bar. Immutable once produced.
type Candle struct {
	Time         time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	OpenInterest float64
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// TypicalPrice is (H+L+C)/3, the price used for VWAP.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3.0
}

// SyncedBar pairs one underlying candle with the option candle for the
// same timestamp. Replay order is ascending SyncedBar.Time; that ordering
// is the engine's sequencing contract.
type SyncedBar struct {
	Time       time.Time
	Underlying Candle
	Option     Candle
}

// FromEpochMillis converts an epoch-milliseconds timestamp into IST.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).In(IST)
}

// Contract is one tradable option contract known for the session.
type Contract struct {
	StrikePrice float64 `json:"strike_price"`
}

// Strikes extracts the sorted unique strike prices from a contract list.
func Strikes(contracts []Contract) []float64 {
	seen := make(map[float64]struct{}, len(contracts))
	out := make([]float64, 0, len(contracts))
	for _, c := range contracts {
		if _, ok := seen[c.StrikePrice]; ok {
			continue
		}
		seen[c.StrikePrice] = struct{}{}
		out = append(out, c.StrikePrice)
	}
	sortFloats(out)
	return out
}

func sortFloats(xs []float64) {
	// insertion sort; strike lists are small
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
