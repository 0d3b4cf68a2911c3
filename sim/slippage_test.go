package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlippage_AdverseDirection(t *testing.T) {
	t.Parallel()

	m := DefaultSlippageModel()

	buy := m.Adjust(100, Buy, 50, 10000)
	sell := m.Adjust(100, Sell, 50, 10000)

	assert.Greater(t, buy, 100.0)
	assert.Less(t, sell, 100.0)

	// impact = 0.0005 + 0.001*(50/10000) = 0.000505
	assert.InDelta(t, 100.0505, buy, 1e-9)
	assert.InDelta(t, 99.9495, sell, 1e-9)
}

func TestSlippage_ImpactCap(t *testing.T) {
	t.Parallel()

	m := DefaultSlippageModel()

	// Order dwarfs volume: raw impact would be 0.0505, capped at 1%.
	buy := m.Adjust(100, Buy, 500, 10)
	assert.InDelta(t, 101.0, buy, 1e-9)
}

func TestSlippage_FallbackVolume(t *testing.T) {
	t.Parallel()

	m := DefaultSlippageModel()

	withFallback := m.Adjust(100, Buy, 50, 0)
	explicit := m.Adjust(100, Buy, 50, m.FallbackVolume)
	assert.InDelta(t, explicit, withFallback, 1e-12)
}

func TestSlippage_DegenerateInputs(t *testing.T) {
	t.Parallel()

	m := DefaultSlippageModel()
	assert.Equal(t, 0.0, m.Adjust(0, Buy, 50, 1000))
	assert.Equal(t, 100.0, m.Adjust(100, Buy, 0, 1000))

	var zero SlippageModel
	assert.Equal(t, 100.0, zero.Adjust(100, Buy, 50, 0))
}
