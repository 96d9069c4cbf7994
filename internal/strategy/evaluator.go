package strategy

import (
	"sort"
	"sync"
	"time"

	"GreenLine/internal/model"
)

const (
	DefaultOversold   = 20.0
	DefaultOverbought = 80.0
)

// Thresholds configures the signal evaluator.
type Thresholds struct {
	Oversold   float64
	Overbought float64
	Percentile float64
}

// DefaultThresholds returns the 20/80 oscillator bands with a 90th percentile cut.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Oversold:   DefaultOversold,
		Overbought: DefaultOverbought,
		Percentile: DefaultPercentileThreshold,
	}
}

// Observation is everything the evaluator needs about one symbol on one date.
type Observation struct {
	Symbol   string
	Date     time.Time
	Close    float64
	Green    float64
	K        float64
	D        float64
	Eligible bool
}

// EvalState is the per-symbol accumulator threaded through the date loop.
// PrevK/PrevD hold the last defined oscillator pair.
type EvalState struct {
	Active      bool
	PrevK       float64
	PrevD       float64
	PrevDefined bool
}

// Step advances one symbol by one date.
func Step(s EvalState, obs Observation, th Thresholds) (EvalState, model.Signal) {
	sig := model.Signal{Symbol: obs.Symbol, Date: obs.Date, Kind: model.SignalNone, Price: obs.Close}
	if !model.Defined(obs.Green) || !model.Defined(obs.K) || !model.Defined(obs.D) {
		return s, sig
	}

	crossUp := s.PrevDefined && obs.K > obs.D && s.PrevK < s.PrevD &&
		(s.PrevK < th.Oversold || s.PrevD < th.Oversold)
	crossDown := s.PrevDefined && obs.K < obs.D && s.PrevK > s.PrevD &&
		(s.PrevK > th.Overbought || s.PrevD > th.Overbought)
	above := obs.Close > obs.Green
	below := obs.Close < obs.Green

	next := EvalState{Active: s.Active, PrevK: obs.K, PrevD: obs.D, PrevDefined: true}

	if s.Active {
		switch {
		case below && crossDown:
			sig.Kind, sig.Reason = model.SignalExit, model.ExitBoth
		case below:
			sig.Kind, sig.Reason = model.SignalExit, model.ExitBelowGreenLine
		case crossDown:
			sig.Kind, sig.Reason = model.SignalExit, model.ExitMoneyWaveDown
		default:
			sig.Kind = model.SignalHold
		}
		next.Active = sig.Kind == model.SignalHold
		return next, sig
	}

	if above && obs.Eligible && crossUp {
		sig.Kind = model.SignalEnter
		next.Active = true
	}
	return next, sig
}

// EvaluateFrame folds Step over one frame's dates.
func EvaluateFrame(f *model.IndicatorFrame, snapshots map[time.Time]model.UniverseSnapshot, th Thresholds) []model.Signal {
	out := make([]model.Signal, 0, f.Len())
	var state EvalState
	for i, d := range f.Dates {
		snap := snapshots[d]
		obs := Observation{
			Symbol:   f.Symbol,
			Date:     d,
			Close:    f.Close[i],
			Green:    f.GreenLine[i],
			K:        f.K[i],
			D:        f.D[i],
			Eligible: snap.Eligible(f.Symbol),
		}
		var sig model.Signal
		state, sig = Step(state, obs, th)
		out = append(out, sig)
	}
	return out
}

// Evaluate runs the evaluator for every symbol independently.
func Evaluate(frames map[string]*model.IndicatorFrame, snapshots map[time.Time]model.UniverseSnapshot, th Thresholds) model.SignalSet {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(model.SignalSet, len(frames))
	)
	for sym, f := range frames {
		wg.Add(1)
		go func(sym string, f *model.IndicatorFrame) {
			defer wg.Done()
			sigs := EvaluateFrame(f, snapshots, th)
			mu.Lock()
			out[sym] = sigs
			mu.Unlock()
		}(sym, f)
	}
	wg.Wait()
	return out
}

// Latest returns each symbol's signal on date, sorted by symbol.
// Symbols without a bar on date are absent.
func Latest(set model.SignalSet, date time.Time) []model.Signal {
	out := make([]model.Signal, 0, len(set))
	for _, sigs := range set {
		i := sort.Search(len(sigs), func(i int) bool { return !sigs[i].Date.Before(date) })
		if i < len(sigs) && sigs[i].Date.Equal(date) {
			out = append(out, sigs[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// HeldSignal evaluates the exit rules on date for a position that is known to be open,
// whatever the fold over f would say. The result is HOLD or EXIT. ok is false when f has no
// bar on date or its indicators are undefined there.
func HeldSignal(f *model.IndicatorFrame, date time.Time, th Thresholds) (model.Signal, bool) {
	i := f.IndexOf(date)
	if i < 0 {
		return model.Signal{}, false
	}
	state := EvalState{Active: true}
	for j := i - 1; j >= 0; j-- {
		if model.Defined(f.GreenLine[j]) && model.Defined(f.K[j]) && model.Defined(f.D[j]) {
			state.PrevK, state.PrevD, state.PrevDefined = f.K[j], f.D[j], true
			break
		}
	}
	_, sig := Step(state, Observation{
		Symbol: f.Symbol,
		Date:   date,
		Close:  f.Close[i],
		Green:  f.GreenLine[i],
		K:      f.K[i],
		D:      f.D[i],
	}, th)
	return sig, sig.Kind != model.SignalNone
}
