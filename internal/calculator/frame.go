package calculator

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"GreenLine/internal/model"
)

// Params configures the indicator engine.
type Params struct {
	GreenLinePeriod int
	Momentum        MomentumBlend
	StochK          int
	StochD          int
}

// DefaultParams returns the standard engine parameters.
func DefaultParams() Params {
	return Params{
		GreenLinePeriod: DefaultGreenLinePeriod,
		Momentum:        DefaultBlend(),
		StochK:          DefaultStochK,
		StochD:          DefaultStochD,
	}
}

// BuildFrame computes the indicator frame for one symbol's bars.
func BuildFrame(series model.BarSeries, p Params) (*model.IndicatorFrame, error) {
	highs, lows, closes := series.Highs(), series.Lows(), series.Closes()

	green, err := GreenLine(highs, p.GreenLinePeriod)
	if err != nil {
		return nil, fmt.Errorf("green line: %w", err)
	}
	rs, err := MomentumComposite(closes, p.Momentum)
	if err != nil {
		return nil, fmt.Errorf("momentum: %w", err)
	}
	k, d, err := Stochastic(highs, lows, closes, p.StochK, p.StochD)
	if err != nil {
		return nil, fmt.Errorf("stochastic: %w", err)
	}

	dates := make([]time.Time, len(series.Bars))
	for i, b := range series.Bars {
		dates[i] = b.Time
	}
	return &model.IndicatorFrame{
		Symbol:    series.Symbol,
		Dates:     dates,
		Close:     closes,
		GreenLine: green,
		RSScore:   rs,
		K:         k,
		D:         d,
	}, nil
}

// BuildFrames computes frames for every non-empty series in the panel concurrently.
// A symbol whose frame fails is logged and left out; others are unaffected.
func BuildFrames(panel model.Panel, p Params) map[string]*model.IndicatorFrame {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		frames = make(map[string]*model.IndicatorFrame, len(panel))
	)
	for sym, series := range panel {
		if series.Empty() {
			continue
		}
		wg.Add(1)
		go func(sym string, series model.BarSeries) {
			defer wg.Done()
			f, err := BuildFrame(series, p)
			if err != nil {
				log.Warn().Str("symbol", sym).Err(err).Msg("indicator frame failed")
				return
			}
			mu.Lock()
			frames[sym] = f
			mu.Unlock()
		}(sym, series)
	}
	wg.Wait()
	return frames
}
