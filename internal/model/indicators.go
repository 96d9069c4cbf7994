package model

import "time"

// IndicatorFrame holds the date-aligned derived series for one symbol.
// Values lacking enough lookback history are NaN (see Defined).
type IndicatorFrame struct {
	Symbol    string
	Dates     []time.Time
	Close     []float64
	GreenLine []float64
	RSScore   []float64
	K         []float64
	D         []float64
}

// Len returns the number of dates in the frame.
func (f *IndicatorFrame) Len() int { return len(f.Dates) }

// IndexOf returns the position of date in the frame, or -1 when the symbol has no bar that day.
func (f *IndicatorFrame) IndexOf(date time.Time) int {
	lo, hi := 0, len(f.Dates)
	for lo < hi {
		mid := (lo + hi) / 2
		if f.Dates[mid].Before(date) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(f.Dates) && f.Dates[lo].Equal(date) {
		return lo
	}
	return -1
}
