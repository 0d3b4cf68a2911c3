package sim

// CostModel computes round-trip transaction costs for one position:
// flat brokerage on both orders, STT on the exit notional only,
// exchange charges on combined notional, and GST on the brokerage.
// Pure and deterministic; all rates are configuration constants.
type CostModel struct {
	BrokeragePerOrder  float64
	STTPct             float64
	ExchangeChargesPct float64
	GSTPct             float64
}

// DefaultCostModel carries NSE options rates: Rs.20 flat brokerage per
// order, 0.05% STT on sell side, 0.035% exchange charges, 18% GST.
func DefaultCostModel() CostModel {
	return CostModel{
		BrokeragePerOrder:  20.0,
		STTPct:             0.0005,
		ExchangeChargesPct: 0.00035,
		GSTPct:             0.18,
	}
}

// RoundTrip returns the total entry+exit cost for the given fill prices
// and quantity.
func (m CostModel) RoundTrip(entryPrice, exitPrice, quantity float64) float64 {
	entryValue := entryPrice * quantity
	exitValue := exitPrice * quantity

	brokerage := m.BrokeragePerOrder * 2
	stt := exitValue * m.STTPct
	exchange := (entryValue + exitValue) * m.ExchangeChargesPct
	gst := brokerage * m.GSTPct

	return brokerage + stt + exchange + gst
}
