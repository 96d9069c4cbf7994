package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"

	"GreenLine/internal/model"
)

// DefaultGreenLinePeriod is the trailing window of daily highs behind the green line.
const DefaultGreenLinePeriod = 250

var errPeriod = errors.New("period must be positive")

// RollingSMA returns the trailing simple moving average aligned to values.
// Entries before the first full window are undefined (NaN).
func RollingSMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	out := undefinedSeries(len(values))
	if len(values) < period {
		return out, nil
	}
	// talib pads the lookback with zeros; only copy the computed tail.
	sma := talib.Sma(values, period)
	copy(out[period-1:], sma[period-1:])
	return out, nil
}

// RollingSMADefined is RollingSMA for series that may themselves carry NaN values.
// A window containing any undefined input yields an undefined output.
func RollingSMADefined(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errPeriod
	}
	out := undefinedSeries(len(values))
	run := 0
	sum := 0.0
	for i, v := range values {
		if !model.Defined(v) {
			run, sum = 0, 0
			continue
		}
		run++
		sum += v
		if run > period {
			sum -= values[i-period]
			run = period
		}
		if run == period {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// GreenLine computes the trend line: SMA of daily highs over period bars.
func GreenLine(highs []float64, period int) ([]float64, error) {
	return RollingSMA(highs, period)
}

func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = model.Undefined()
	}
	return out
}
