// Package greeks prices European options with the Black-Scholes model,
// solves for implied volatility, and computes the first-order greeks
// used to gate and annotate entries.
package greeks

import "math"

// OptionType follows NSE contract naming: CE for calls, PE for puts.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// Greeks is the per-bar sensitivity snapshot of an option contract.
// IV is in percent (e.g. 32.5). Theta is per calendar day, Vega per
// one percentage point of volatility.
//
// Approximate is set when the IV solver did not converge and the
// configured default volatility was used instead.
type Greeks struct {
	Delta       float64 `json:"delta"`
	Gamma       float64 `json:"gamma"`
	Theta       float64 `json:"theta"`
	Vega        float64 `json:"vega"`
	IV          float64 `json:"iv"`
	Approximate bool    `json:"approximate,omitempty"`
}

// Engine inverts the pricing model for implied volatility and computes
// closed-form greeks. Zero-value fields are filled in by NewEngine;
// construct through it.
type Engine struct {
	// RiskFreeRate is the annualized rate used for discounting.
	RiskFreeRate float64
	// DefaultIV (fraction, e.g. 0.30) is returned when the solver
	// cannot converge.
	DefaultIV float64
	// MinTTEDays clamps time-to-expiry away from zero.
	MinTTEDays float64
	// Tolerance and MaxIterations bound the bisection search.
	Tolerance     float64
	MaxIterations int
}

// NewEngine returns an Engine with defaults suitable for index options:
// 6.5% risk-free rate, 30% fallback volatility, half-day expiry floor.
func NewEngine() *Engine {
	return &Engine{
		RiskFreeRate:  0.065,
		DefaultIV:     0.30,
		MinTTEDays:    0.5,
		Tolerance:     1e-4,
		MaxIterations: 100,
	}
}

// years converts days-to-expiry into year fractions, clamped to the
// engine's minimum so T never divides by zero.
func (e *Engine) years(tteDays float64) float64 {
	if tteDays < e.MinTTEDays {
		tteDays = e.MinTTEDays
	}
	return tteDays / 365.0
}

func d1d2(spot, strike, t, r, sigma float64) (float64, float64) {
	d1 := (math.Log(spot/strike) + (r+sigma*sigma/2)*t) / (sigma * math.Sqrt(t))
	d2 := d1 - sigma*math.Sqrt(t)
	return d1, d2
}

// Price returns the Black-Scholes theoretical price. sigma is a
// volatility fraction (0.30 = 30%).
func (e *Engine) Price(spot, strike, tteDays, sigma float64, typ OptionType) float64 {
	if spot <= 0 || strike <= 0 || sigma <= 0 {
		return 0
	}
	t := e.years(tteDays)
	r := e.RiskFreeRate
	d1, d2 := d1d2(spot, strike, t, r, sigma)

	if typ == Put {
		return strike*math.Exp(-r*t)*normCDF(-d2) - spot*normCDF(-d1)
	}
	return spot*normCDF(d1) - strike*math.Exp(-r*t)*normCDF(d2)
}

// ImpliedVolatility inverts Price for sigma by bisection over
// [1%, 500%] volatility. ok=false means the search did not converge
// (market price outside the attainable range or iteration budget
// exhausted) and the engine's DefaultIV was returned instead.
func (e *Engine) ImpliedVolatility(marketPrice, spot, strike, tteDays float64, typ OptionType) (iv float64, ok bool) {
	if marketPrice <= 0 || spot <= 0 || strike <= 0 {
		return e.DefaultIV, false
	}

	lo, hi := 0.01, 5.0
	priceLo := e.Price(spot, strike, tteDays, lo, typ)
	priceHi := e.Price(spot, strike, tteDays, hi, typ)

	// Price is monotonically increasing in volatility; a market price
	// outside [priceLo, priceHi] has no root on the grid.
	if marketPrice < priceLo || marketPrice > priceHi {
		return e.DefaultIV, false
	}

	for i := 0; i < e.MaxIterations; i++ {
		mid := (lo + hi) / 2
		diff := e.Price(spot, strike, tteDays, mid, typ) - marketPrice
		if math.Abs(diff) < e.Tolerance {
			return mid, true
		}
		if diff > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
	return e.DefaultIV, false
}

// Calculate computes the closed-form greeks for the given (solved or
// default) volatility fraction. The returned Greeks carries IV in
// percent.
func (e *Engine) Calculate(spot, strike, tteDays, sigma float64, typ OptionType) Greeks {
	if sigma <= 0 {
		sigma = e.DefaultIV
	}
	t := e.years(tteDays)
	r := e.RiskFreeRate
	d1, d2 := d1d2(spot, strike, t, r, sigma)

	pdf := normPDF(d1)
	gamma := pdf / (spot * sigma * math.Sqrt(t))
	vega := spot * pdf * math.Sqrt(t) / 100.0

	var delta, theta float64
	if typ == Put {
		delta = normCDF(d1) - 1
		theta = (-spot*pdf*sigma/(2*math.Sqrt(t)) + r*strike*math.Exp(-r*t)*normCDF(-d2)) / 365.0
	} else {
		delta = normCDF(d1)
		theta = (-spot*pdf*sigma/(2*math.Sqrt(t)) - r*strike*math.Exp(-r*t)*normCDF(d2)) / 365.0
	}

	return Greeks{
		Delta: delta,
		Gamma: gamma,
		Theta: theta,
		Vega:  vega,
		IV:    sigma * 100.0,
	}
}

// Snapshot solves for IV from the market premium and computes greeks in
// one step. The combined call is what the replay engine uses per bar.
func (e *Engine) Snapshot(marketPrice, spot, strike, tteDays float64, typ OptionType) Greeks {
	iv, ok := e.ImpliedVolatility(marketPrice, spot, strike, tteDays, typ)
	g := e.Calculate(spot, strike, tteDays, iv, typ)
	g.Approximate = !ok
	return g
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
