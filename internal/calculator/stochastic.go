package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"
)

const (
	DefaultStochK = 14
	DefaultStochD = 3

	// flatRangeK is used when the window's high equals its low.
	flatRangeK = 50.0
)

// Stochastic computes the %K/%D oscillator pair aligned to the input bars.
// %K is undefined before kPeriod bars, %D before kPeriod+dPeriod-1 bars.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) (k, d []float64, err error) {
	if kPeriod <= 0 || dPeriod <= 0 {
		return nil, nil, errPeriod
	}
	n := len(closes)
	if len(highs) != n || len(lows) != n {
		return nil, nil, errors.New("highs, lows and closes must have equal length")
	}

	k = undefinedSeries(n)
	if n >= kPeriod {
		hh, ll := rollingExtremes(highs, lows, kPeriod)
		for i := kPeriod - 1; i < n; i++ {
			k[i] = percentK(closes[i], hh[i], ll[i])
		}
	}

	d, err = RollingSMADefined(k, dPeriod)
	if err != nil {
		return nil, nil, err
	}
	return k, d, nil
}

// rollingExtremes returns the highest high and lowest low over the trailing period.
// Only indices >= period-1 are meaningful.
func rollingExtremes(highs, lows []float64, period int) (hh, ll []float64) {
	if period == 1 {
		hh = make([]float64, len(highs))
		ll = make([]float64, len(lows))
		copy(hh, highs)
		copy(ll, lows)
		return hh, ll
	}
	return talib.Max(highs, period), talib.Min(lows, period)
}

func percentK(close, highest, lowest float64) float64 {
	if highest == lowest {
		return flatRangeK
	}
	pct := 100 * (close - lowest) / (highest - lowest)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
