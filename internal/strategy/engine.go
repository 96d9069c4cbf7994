package strategy

import (
	"time"

	"github.com/rs/zerolog/log"

	"GreenLine/internal/calculator"
	"GreenLine/internal/model"
)

// Params bundles indicator and evaluator settings.
type Params struct {
	Indicators calculator.Params
	Thresholds Thresholds
}

// DefaultParams returns the standard strategy parameters.
func DefaultParams() Params {
	return Params{Indicators: calculator.DefaultParams(), Thresholds: DefaultThresholds()}
}

// Output is the full signal computation over a panel.
type Output struct {
	Frames    map[string]*model.IndicatorFrame
	Snapshots map[time.Time]model.UniverseSnapshot
	Signals   model.SignalSet
	Calendar  []time.Time
}

// LastDate returns the most recent date in the calendar, or the zero time.
func (o *Output) LastDate() time.Time {
	if len(o.Calendar) == 0 {
		return time.Time{}
	}
	return o.Calendar[len(o.Calendar)-1]
}

// Run computes indicators, cross-sectional snapshots and signals for a pre-fetched panel.
func Run(panel model.Panel, p Params) *Output {
	frames := calculator.BuildFrames(panel, p.Indicators)
	snapshots := BuildSnapshots(frames, p.Thresholds.Percentile)
	signals := Evaluate(frames, snapshots, p.Thresholds)
	cal := Calendar(frames)

	log.Debug().
		Int("symbols", len(frames)).
		Int("dates", len(cal)).
		Msg("signals computed")

	return &Output{Frames: frames, Snapshots: snapshots, Signals: signals, Calendar: cal}
}

// Count tallies signals of each kind on date.
func Count(set model.SignalSet, date time.Time) map[model.SignalKind]int {
	out := make(map[model.SignalKind]int)
	for _, s := range Latest(set, date) {
		out[s.Kind]++
	}
	return out
}
