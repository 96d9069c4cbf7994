package model

import (
	"math"
	"time"
)

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time `msgpack:"t"`
	Open   float64   `msgpack:"o"`
	High   float64   `msgpack:"h"`
	Low    float64   `msgpack:"l"`
	Close  float64   `msgpack:"c"`
	Volume float64   `msgpack:"v"`
}

// BarSeries holds one symbol's daily bars ordered by strictly increasing date.
// Missing trading days are left as gaps.
type BarSeries struct {
	Symbol string  `msgpack:"symbol"`
	Bars   []OHLCV `msgpack:"bars"`
}

// Len returns the number of bars.
func (s BarSeries) Len() int { return len(s.Bars) }

// Empty reports whether the series carries no bars.
func (s BarSeries) Empty() bool { return len(s.Bars) == 0 }

// First returns the date of the oldest bar, or the zero time.
func (s BarSeries) First() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[0].Time
}

// Last returns the date of the newest bar, or the zero time.
func (s BarSeries) Last() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Time
}

// Closes extracts the close column.
func (s BarSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column.
func (s BarSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column.
func (s BarSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Panel maps symbol to its bar series.
type Panel map[string]BarSeries

// Day truncates t to its UTC calendar date. All bar dates are normalised this way.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Undefined is the marker for indicator values that lack history.
func Undefined() float64 { return math.NaN() }

// Defined reports whether v carries a computed indicator value.
func Defined(v float64) bool { return !math.IsNaN(v) }
