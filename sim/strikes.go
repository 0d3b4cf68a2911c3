package sim

import (
	"errors"
	"sort"

	"github.com/raviyer/optsim/greeks"
)

// ErrNoStrikes is returned when strike selection is asked to choose
// from an empty list.
var ErrNoStrikes = errors.New("no strikes available")

// StrikeSelector maps spot price and the available strike grid to a
// contract strike. Offset 0 selects ATM; positive offsets shift that
// many grid steps out-of-the-money (up for calls, down for puts).
type StrikeSelector struct {
	Offset int
}

// Select picks the strike nearest spot, breaking exact ties toward the
// higher strike, then applies the OTM offset clamped to the grid.
func (s StrikeSelector) Select(spot float64, available []float64, typ greeks.OptionType) (float64, error) {
	if len(available) == 0 {
		return 0, ErrNoStrikes
	}

	strikes := make([]float64, len(available))
	copy(strikes, available)
	sort.Float64s(strikes)

	// idx is the first strike >= spot. Compare it with its lower
	// neighbor; ties resolve to the higher strike deterministically.
	idx := sort.SearchFloat64s(strikes, spot)
	if idx == len(strikes) {
		idx = len(strikes) - 1
	} else if idx > 0 {
		below := spot - strikes[idx-1]
		above := strikes[idx] - spot
		if below < above {
			idx--
		}
	}

	if typ == greeks.Put {
		idx -= s.Offset
	} else {
		idx += s.Offset
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(strikes) {
		idx = len(strikes) - 1
	}
	return strikes[idx], nil
}
