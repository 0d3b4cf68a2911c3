package market

// Aggregate groups consecutive fine-granularity candles into coarser bars,
// n fine candles per coarse bar (e.g. n=3 turns 5m bars into 15m bars).
//
// A trailing incomplete group is dropped: trend indicators must only see
// fully formed bars. The aggregated bar carries the first candle's time,
// first open, max high, min low, last close and summed volume.
func Aggregate(candles []Candle, n int) []Candle {
	if n <= 1 {
		out := make([]Candle, len(candles))
		copy(out, candles)
		return out
	}

	out := make([]Candle, 0, len(candles)/n)
	for i := 0; i+n <= len(candles); i += n {
		chunk := candles[i : i+n]

		agg := Candle{
			Time:         chunk[0].Time,
			Open:         chunk[0].Open,
			High:         chunk[0].High,
			Low:          chunk[0].Low,
			Close:        chunk[n-1].Close,
			OpenInterest: chunk[n-1].OpenInterest,
		}
		for _, c := range chunk {
			if c.High > agg.High {
				agg.High = c.High
			}
			if c.Low < agg.Low {
				agg.Low = c.Low
			}
			agg.Volume += c.Volume
		}
		out = append(out, agg)
	}
	return out
}

// Closes extracts the close series from candles.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
