package sim

// SlippageModel perturbs a theoretical fill price by an adverse shift
// proportional to order size relative to bar volume. The aggressor
// always receives the worse price: higher for buys, lower for sells.
// Impact is capped so illiquid bars cannot produce absurd fills.
type SlippageModel struct {
	// BaseImpactPct is the floor impact applied to every fill.
	BaseImpactPct float64
	// VolumeImpactPct scales with orderSize/barVolume.
	VolumeImpactPct float64
	// MaxImpactPct caps the total impact.
	MaxImpactPct float64
	// FallbackVolume substitutes for missing or zero bar volume.
	FallbackVolume float64
}

// DefaultSlippageModel: 0.05% base, 0.1% per unit of size/volume ratio,
// capped at 1%.
func DefaultSlippageModel() SlippageModel {
	return SlippageModel{
		BaseImpactPct:   0.0005,
		VolumeImpactPct: 0.001,
		MaxImpactPct:    0.01,
		FallbackVolume:  5000,
	}
}

// Adjust returns the slippage-adjusted fill price for an order of the
// given side and size against a bar that traded volume.
func (m SlippageModel) Adjust(price float64, side Side, orderSize, volume float64) float64 {
	if price <= 0 || orderSize <= 0 {
		return price
	}
	if volume <= 0 {
		volume = m.FallbackVolume
	}
	if volume <= 0 {
		return price
	}

	impact := m.BaseImpactPct + m.VolumeImpactPct*(orderSize/volume)
	if impact > m.MaxImpactPct {
		impact = m.MaxImpactPct
	}

	return price * (1 + float64(side)*impact)
}
