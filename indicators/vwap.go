package indicators

import (
	"fmt"

	"github.com/raviyer/optsim/market"
)

// VWAP computes the session volume-weighted average price over candles
// using typical price (H+L+C)/3.
//
// When total volume is zero (index data often reports none) it falls
// back to the simple average of closes.
func VWAP(candles []market.Candle) (float64, error) {
	if len(candles) == 0 {
		return 0, fmt.Errorf("no candles for VWAP")
	}

	var tpv, vol float64
	for _, c := range candles {
		tpv += c.TypicalPrice() * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		sum := 0.0
		for _, c := range candles {
			sum += c.Close
		}
		return sum / float64(len(candles)), nil
	}
	return tpv / vol, nil
}
