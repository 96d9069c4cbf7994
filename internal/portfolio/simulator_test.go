package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GreenLine/internal/model"
	"GreenLine/internal/strategy"
)

var day0 = time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)

// stream builds one symbol's signals from closes and a sparse kind map.
func stream(sym string, closes []float64, kinds map[int]model.SignalKind) []model.Signal {
	out := make([]model.Signal, len(closes))
	for i, c := range closes {
		k, ok := kinds[i]
		if !ok {
			k = model.SignalNone
		}
		out[i] = model.Signal{Symbol: sym, Date: day0.AddDate(0, 0, i), Kind: k, Price: c}
		if k == model.SignalExit {
			out[i].Reason = model.ExitBelowGreenLine
		}
	}
	return out
}

func TestSimulate_RoundTripWithoutSlippage(t *testing.T) {
	closes := []float64{10, 11, 12.5, 13, 12}
	set := model.SignalSet{"AAA": stream("AAA", closes, map[int]model.SignalKind{
		1: model.SignalEnter, 2: model.SignalHold, 3: model.SignalExit,
	})}

	res, err := Simulate(set, Params{InitialCapital: 1000})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	exit, entry := 13.0, 11.0
	assert.Equal(t, exit/entry-1, tr.Return)
	assert.Equal(t, 11.0, tr.EntryPrice)
	assert.Equal(t, 13.0, tr.ExitPrice)
	assert.Equal(t, day0.AddDate(0, 0, 1), tr.EntryDate)
	assert.Equal(t, day0.AddDate(0, 0, 3), tr.ExitDate)
	assert.Equal(t, 2, tr.DaysHeld)
	assert.Equal(t, model.ExitBelowGreenLine, tr.ExitReason)

	require.Len(t, res.Curve, len(closes))
	assert.InDelta(t, 1000*13.0/11.0, res.Curve[4].Value, 1e-9)
	assert.Equal(t, 0, res.Curve[4].OpenPositions)
}

func TestSimulate_SlippageOnBothLegs(t *testing.T) {
	closes := []float64{100, 100, 110}
	set := model.SignalSet{"AAA": stream("AAA", closes, map[int]model.SignalKind{0: model.SignalEnter, 2: model.SignalExit})}

	res, err := Simulate(set, Params{InitialCapital: 10000, Slippage: DefaultSlippage})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.InDelta(t, 100*(1+DefaultSlippage), tr.EntryPrice, 1e-12)
	assert.InDelta(t, 110*(1-DefaultSlippage), tr.ExitPrice, 1e-12)
	assert.InDelta(t, 10000*tr.ExitPrice/tr.EntryPrice, res.Curve[2].Value, 1e-6)
}

func TestSimulate_ForceCloseOnLastDate(t *testing.T) {
	closes := []float64{20, 21, 22, 23}
	set := model.SignalSet{"AAA": stream("AAA", closes, map[int]model.SignalKind{2: model.SignalEnter, 3: model.SignalHold})}

	res, err := Simulate(set, Params{InitialCapital: 500, Slippage: 0.001})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, day0.AddDate(0, 0, 2), tr.EntryDate)
	assert.Equal(t, day0.AddDate(0, 0, 3), tr.ExitDate)
	assert.Equal(t, model.ExitEndOfTest, tr.ExitReason)
	assert.InDelta(t, 23*(1-0.001), tr.ExitPrice, 1e-12)

	last := res.Curve[len(res.Curve)-1]
	assert.Equal(t, 0, last.OpenPositions)
	assert.InDelta(t, last.Cash, last.Value, 1e-9)
}

func TestSimulate_EqualWeightAllocation(t *testing.T) {
	flat := []float64{50, 50, 50, 50}
	set := model.SignalSet{
		"AAA": stream("AAA", flat, map[int]model.SignalKind{0: model.SignalEnter}),
		"BBB": stream("BBB", flat, map[int]model.SignalKind{0: model.SignalEnter}),
		"CCC": stream("CCC", flat, map[int]model.SignalKind{1: model.SignalEnter}),
		"DDD": stream("DDD", flat, map[int]model.SignalKind{2: model.SignalEnter}),
	}

	sim := NewSimulator(Params{InitialCapital: 900})
	dates, byDate := groupByDate(set, time.Time{}, time.Time{})
	require.Len(t, dates, 4)

	sim.step(dates[0], byDate[dates[0]], false)
	require.Len(t, sim.positions, 2)
	assert.InDelta(t, 450, sim.positions["AAA"].Quantity*50, 1e-9)
	assert.InDelta(t, 0, sim.cash, 1e-9)

	// fully invested: holdings are trimmed to fund the third name at 1/3
	sim.step(dates[1], byDate[dates[1]], false)
	require.Len(t, sim.positions, 3)
	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		assert.InDelta(t, 300, sim.positions[sym].Quantity*50, 1e-9, sym)
	}

	sim.step(dates[2], byDate[dates[2]], false)
	require.Len(t, sim.positions, 4)
	for _, sym := range []string{"AAA", "BBB", "CCC", "DDD"} {
		assert.InDelta(t, 225, sim.positions[sym].Quantity*50, 1e-9, sym)
	}
	assert.InDelta(t, 900, sim.curve[2].Value, 1e-9)
	assert.InDelta(t, 0, sim.curve[2].Cash, 1e-9)
}

func TestSimulate_LaterEntrantDilutesFullyInvestedBook(t *testing.T) {
	flat := []float64{100, 100, 100}
	set := model.SignalSet{
		"AAA": stream("AAA", flat, map[int]model.SignalKind{0: model.SignalEnter}),
		"BBB": stream("BBB", flat, map[int]model.SignalKind{1: model.SignalEnter}),
	}
	res, err := Simulate(set, Params{InitialCapital: 1000})
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, 2, res.Curve[1].OpenPositions)
	for _, tr := range res.Trades {
		assert.InDelta(t, 5, tr.Quantity, 1e-9, tr.Symbol)
	}
}

func TestSimulate_TrimPaysSlippage(t *testing.T) {
	const slip = 0.01
	flat := []float64{100, 100}
	set := model.SignalSet{
		"AAA": stream("AAA", flat, map[int]model.SignalKind{0: model.SignalEnter}),
		"BBB": stream("BBB", flat, map[int]model.SignalKind{1: model.SignalEnter}),
	}
	sim := NewSimulator(Params{InitialCapital: 1000, Slippage: slip})
	dates, byDate := groupByDate(set, time.Time{}, time.Time{})
	sim.step(dates[0], byDate[dates[0]], false)
	aaaQty := 1000 / (100 * (1 + slip))

	sim.step(dates[1], byDate[dates[1]], false)
	target := aaaQty * 100 / 2
	freed := target * (1 - slip)
	require.Len(t, sim.positions, 2)
	assert.InDelta(t, aaaQty/2, sim.positions["AAA"].Quantity, 1e-9)
	assert.InDelta(t, freed/(100*(1+slip)), sim.positions["BBB"].Quantity, 1e-9)
	assert.InDelta(t, 0, sim.cash, 1e-9)
}

func TestSimulate_EntrantsShareCashAfterExit(t *testing.T) {
	flat := []float64{40, 40, 40}
	set := model.SignalSet{
		"AAA": stream("AAA", flat, map[int]model.SignalKind{0: model.SignalEnter, 1: model.SignalExit}),
		"BBB": stream("BBB", flat, map[int]model.SignalKind{0: model.SignalEnter}),
		"CCC": stream("CCC", flat, map[int]model.SignalKind{1: model.SignalEnter}),
	}
	res, err := Simulate(set, Params{InitialCapital: 1000})
	require.NoError(t, err)

	// day 1: AAA exits (500 cash back), BBB stays, CCC enters at 1/2 of 1000
	var ccc model.TradeRecord
	for _, tr := range res.Trades {
		if tr.Symbol == "CCC" {
			ccc = tr
		}
	}
	assert.InDelta(t, 500/40.0, ccc.Quantity, 1e-9)
	assert.Len(t, res.Trades, 3)
}

func TestSimulate_GapDayKeepsLastPrice(t *testing.T) {
	aaa := stream("AAA", []float64{10, 10, 12, 12}, map[int]model.SignalKind{0: model.SignalEnter})
	// remove the AAA bar on day 2; BBB trades every day
	aaa = append(aaa[:2], aaa[3:]...)
	set := model.SignalSet{
		"AAA": aaa,
		"BBB": stream("BBB", []float64{5, 5, 5, 5}, nil),
	}
	res, err := Simulate(set, Params{InitialCapital: 100})
	require.NoError(t, err)
	require.Len(t, res.Curve, 4)
	assert.InDelta(t, 100, res.Curve[2].Value, 1e-9, "gap day marks at last known close")
	assert.InDelta(t, 120, res.Curve[3].Value, 1e-9)
}

func TestSimulate_WindowAndValidation(t *testing.T) {
	set := model.SignalSet{"AAA": stream("AAA", []float64{1, 2, 3, 4, 5}, nil)}

	res, err := Simulate(set, Params{InitialCapital: 1, Start: day0.AddDate(0, 0, 1), End: day0.AddDate(0, 0, 3)})
	require.NoError(t, err)
	assert.Len(t, res.Curve, 3)

	_, err = Simulate(set, Params{InitialCapital: 1, Start: day0.AddDate(1, 0, 0)})
	assert.ErrorIs(t, err, ErrNoDates)

	_, err = Simulate(set, Params{InitialCapital: 0})
	assert.Error(t, err)
	_, err = Simulate(set, Params{InitialCapital: 1, Slippage: -0.1})
	assert.Error(t, err)
}

func TestEndToEnd_EnterOnDay260(t *testing.T) {
	const n = 270
	mkFrame := func(sym string, rs float64, cross bool) *model.IndicatorFrame {
		f := &model.IndicatorFrame{Symbol: sym}
		for i := 0; i < n; i++ {
			f.Dates = append(f.Dates, day0.AddDate(0, 0, i))
			f.Close = append(f.Close, 80+float64(i)*0.08)
			green, score, k, d := math.NaN(), math.NaN(), 50.0, 50.0
			if i >= 249 {
				green = 100.7
			}
			if i >= 252 {
				score = rs
			}
			if i == 258 {
				k, d = 15, 18
			}
			if i == 259 && cross {
				k, d = 25, 20
			}
			f.GreenLine = append(f.GreenLine, green)
			f.RSScore = append(f.RSScore, score)
			f.K = append(f.K, k)
			f.D = append(f.D, d)
		}
		return f
	}
	frames := map[string]*model.IndicatorFrame{"X": mkFrame("X", 1.0, true)}
	for i, sym := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"} {
		frames[sym] = mkFrame(sym, 0.01*float64(i), false)
	}

	th := strategy.DefaultThresholds()
	set := strategy.Evaluate(frames, strategy.BuildSnapshots(frames, th.Percentile), th)
	require.Equal(t, model.SignalEnter, set["X"][259].Kind)

	res, err := Simulate(set, Params{InitialCapital: 100000, Slippage: DefaultSlippage})
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, "X", tr.Symbol)
	assert.Equal(t, day0.AddDate(0, 0, 259), tr.EntryDate)
	assert.InDelta(t, set["X"][259].Price*(1+DefaultSlippage), tr.EntryPrice, 1e-9)
	assert.Equal(t, model.ExitEndOfTest, tr.ExitReason)
}
