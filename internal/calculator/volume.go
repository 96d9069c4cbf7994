package calculator

import (
	"gonum.org/v1/gonum/stat"

	"GreenLine/internal/model"
)

// DefaultDollarVolumeWindow is the trailing window used to rank liquidity.
const DefaultDollarVolumeWindow = 60

// MeanDollarVolume returns mean(close*volume) over the trailing window bars.
// ok is false when fewer than window bars exist.
func MeanDollarVolume(bars []model.OHLCV, window int) (mean float64, ok bool) {
	if window <= 0 || len(bars) < window {
		return 0, false
	}
	dv := make([]float64, window)
	for i, b := range bars[len(bars)-window:] {
		dv[i] = b.Close * b.Volume
	}
	return stat.Mean(dv, nil), true
}
