// Package strategies holds the signal-generation side of the system:
// the Signal vocabulary shared with the simulator and the pullback
// continuation strategy that produces entries.
package strategies

import (
	"fmt"
	"time"

	"github.com/raviyer/optsim/market"
)

// Signal is a directional trading decision.
type Signal int8

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Bias is the higher-timeframe trend reading.
type Bias string

const (
	BiasNeutral Bias = "NEUTRAL"
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
)

// SignalDetails is the diagnostic snapshot emitted alongside a BUY or
// SELL. It exists purely for audit and logging; nothing downstream
// branches on it.
type SignalDetails struct {
	Bias       Bias
	Spot       float64
	VWAP       float64
	RSI        float64
	EMA20M15   float64
	EMA50M15   float64
	EMA9M5     float64
	EMA21M5    float64
	LastCandle market.Candle
	PrevCandle market.Candle
}

// DayTime is a wall-clock time of day in the exchange timezone.
type DayTime struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

func (d DayTime) Minutes() int { return d.Hour*60 + d.Minute }

func (d DayTime) Valid() bool {
	return d.Hour >= 0 && d.Hour < 24 && d.Minute >= 0 && d.Minute < 60
}

func (d DayTime) String() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

// Reached reports whether t's time of day is at or past d.
func (d DayTime) Reached(t time.Time) bool {
	return t.Hour()*60+t.Minute() >= d.Minutes()
}

// Window is an intraday session window, inclusive on both ends.
type Window struct {
	Start DayTime `json:"start" yaml:"start"`
	End   DayTime `json:"end" yaml:"end"`
}

func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return m >= w.Start.Minutes() && m <= w.End.Minutes()
}

func (w Window) Valid() bool {
	return w.Start.Valid() && w.End.Valid() && w.Start.Minutes() < w.End.Minutes()
}
