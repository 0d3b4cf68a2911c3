// Package indicators provides the technical analysis primitives the
// signal pipeline is built from: EMA, RSI (Wilder), session VWAP and ATR.
//
// All functions are batch computations over pre-materialized history.
// They are deterministic and safe to call every bar of a replay.
package indicators

import (
	"fmt"
	"math"
)

// EMASeries computes an Exponential Moving Average series over values.
//
// The returned slice is aligned with the input: the first period-1
// entries are NaN (no value yet), entry period-1 is the SMA seed, and
// later entries follow the standard EMA recurrence.
func EMASeries(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return nil, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}

	multiplier := 2.0 / float64(period+1)

	out := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += values[i]
	}
	ema := sma / float64(period)
	out[period-1] = ema

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out, nil
}

// EMA returns the latest EMA value for the given period.
func EMA(values []float64, period int) (float64, error) {
	series, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// Last returns the final entry of a series and the entry before it.
// The previous value falls back to the last one when the series has a
// single real entry.
func Last(series []float64) (cur, prev float64) {
	cur = series[len(series)-1]
	prev = cur
	if len(series) > 1 && !math.IsNaN(series[len(series)-2]) {
		prev = series[len(series)-2]
	}
	return cur, prev
}

// RSI computes the Relative Strength Index with classic Wilder smoothing.
// Returns 100 when there are no losses in the window.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(closes) <= period {
		return 0, fmt.Errorf("not enough closes: need %d, got %d", period+1, len(closes))
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100.0, nil
	}

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs)), nil
}
