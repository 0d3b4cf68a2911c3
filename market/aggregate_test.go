package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_ThreeToOne(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 10, 9, 15, 0, 0, IST)
	candles := []Candle{
		{Time: base, Open: 100, High: 105, Low: 99, Close: 102, Volume: 10},
		{Time: base.Add(5 * time.Minute), Open: 102, High: 108, Low: 101, Close: 107, Volume: 20},
		{Time: base.Add(10 * time.Minute), Open: 107, High: 107, Low: 103, Close: 104, Volume: 30},
		// incomplete trailing chunk, must be dropped
		{Time: base.Add(15 * time.Minute), Open: 104, High: 110, Low: 104, Close: 109, Volume: 40},
	}

	out := Aggregate(candles, 3)
	require.Len(t, out, 1)

	agg := out[0]
	assert.Equal(t, base, agg.Time)
	assert.Equal(t, 100.0, agg.Open)
	assert.Equal(t, 108.0, agg.High)
	assert.Equal(t, 99.0, agg.Low)
	assert.Equal(t, 104.0, agg.Close)
	assert.Equal(t, 60.0, agg.Volume)
}

func TestAggregate_RatioOneCopies(t *testing.T) {
	t.Parallel()

	candles := []Candle{{Close: 1}, {Close: 2}}
	out := Aggregate(candles, 1)
	require.Len(t, out, 2)
	assert.Equal(t, candles, out)

	// must be a copy, not an alias
	out[0].Close = 99
	assert.Equal(t, 1.0, candles[0].Close)
}

func TestAggregate_ShortInput(t *testing.T) {
	t.Parallel()

	out := Aggregate([]Candle{{Close: 1}, {Close: 2}}, 3)
	assert.Empty(t, out)
}

func TestStrikes_DedupeAndSort(t *testing.T) {
	t.Parallel()

	contracts := []Contract{
		{StrikePrice: 22150},
		{StrikePrice: 22050},
		{StrikePrice: 22100},
		{StrikePrice: 22050},
	}
	assert.Equal(t, []float64{22050, 22100, 22150}, Strikes(contracts))
}

func TestCandle_Direction(t *testing.T) {
	t.Parallel()

	assert.True(t, Candle{Open: 100, Close: 101}.Bullish())
	assert.True(t, Candle{Open: 100, Close: 99}.Bearish())

	doji := Candle{Open: 100, Close: 100}
	assert.False(t, doji.Bullish())
	assert.False(t, doji.Bearish())
}
