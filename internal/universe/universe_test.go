package universe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GreenLine/internal/collector"
	"GreenLine/internal/model"
)

var now = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

func TestStatic(t *testing.T) {
	got := Static([]string{"spy", "QQQ", " SPY ", "", "IWM", "QQQ"}, 0)
	assert.Equal(t, []string{"SPY", "QQQ", "IWM"}, got)
	assert.Equal(t, []string{"SPY", "QQQ"}, Static([]string{"SPY", "QQQ", "IWM"}, 2))
}

func TestDefaultSymbolsAreUnique(t *testing.T) {
	assert.Len(t, DefaultSymbols, 60)
	assert.Len(t, Static(DefaultSymbols, 0), 60)
}

func TestSelect_StaticMode(t *testing.T) {
	s := &Selector{}
	got, err := s.Select(context.Background(), Params{Mode: ModeStatic, MaxSymbols: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "QQQ", "IWM", "DIA", "VTI"}, got)

	_, err = s.Select(context.Background(), Params{Mode: "weekly"})
	assert.Error(t, err)
}

// liquidPanel gives S00..S19 constant volume with S19 the most liquid.
func liquidPanel(n, bars int) model.Panel {
	panel := model.Panel{}
	for i := 0; i < n; i++ {
		sym := fmt.Sprintf("S%02d", i)
		s := collector.GenerateBars(sym, now, bars, 10, float64(1000*(i+1)))
		panel[sym] = s
	}
	return panel
}

func TestRankByDollarVolume_TopFiveOfTwenty(t *testing.T) {
	panel := liquidPanel(20, 60)
	for i := range panel["S00"].Bars {
		// constant close so the mean is exactly close*volume
		panel["S00"].Bars[i].Close = 1e6
	}
	got := RankByDollarVolume(panel, 60, 5)
	assert.Equal(t, []string{"S00", "S19", "S18", "S17", "S16"}, got)
}

func TestRankByDollarVolume_TiesAndShortHistory(t *testing.T) {
	mk := func(sym string, n int) model.BarSeries {
		bars := make([]model.OHLCV, n)
		for i := range bars {
			bars[i] = model.OHLCV{Time: now.AddDate(0, 0, i-n), Close: 10, Volume: 100}
		}
		return model.BarSeries{Symbol: sym, Bars: bars}
	}
	panel := model.Panel{"BBB": mk("BBB", 60), "AAA": mk("AAA", 60), "CCC": mk("CCC", 59)}
	assert.Equal(t, []string{"AAA", "BBB"}, RankByDollarVolume(panel, 60, 0))
}

func TestSelect_Dynamic(t *testing.T) {
	panel := liquidPanel(20, 70)
	assets := []collector.Asset{{Symbol: "HALT", Tradable: false}}
	for i := 0; i < 20; i++ {
		assets = append(assets, collector.Asset{Symbol: fmt.Sprintf("S%02d", i), Tradable: true})
	}
	store := &collector.MockStore{Panel: panel, Assets: assets}
	s := &Selector{Assets: store, Collector: collector.NewCollector(store, "iex")}

	got, err := s.Select(context.Background(), Params{Mode: ModeDynamic, MaxSymbols: 5, Now: now, LookbackDays: 120})
	require.NoError(t, err)
	assert.Equal(t, []string{"S19", "S18", "S17", "S16", "S15"}, got)
}

func TestSelect_DynamicCandidateLimit(t *testing.T) {
	panel := liquidPanel(20, 70)
	var assets []collector.Asset
	for i := 0; i < 20; i++ {
		assets = append(assets, collector.Asset{Symbol: fmt.Sprintf("S%02d", i), Tradable: true})
	}
	store := &collector.MockStore{Panel: panel, Assets: assets}
	s := &Selector{Assets: store, Collector: collector.NewCollector(store, "iex")}

	got, err := s.Select(context.Background(), Params{Mode: ModeDynamic, MaxSymbols: 3, CandidateLimit: 4, Now: now, LookbackDays: 120})
	require.NoError(t, err)
	assert.Equal(t, []string{"S03", "S02", "S01"}, got)
}

func TestSelect_DynamicFallsBackToStatic(t *testing.T) {
	store := &collector.MockStore{
		Assets: []collector.Asset{{Symbol: "AAA", Tradable: true}},
		Errs:   map[string]error{"AAA": errors.New("down")},
	}
	s := &Selector{Assets: store, Collector: collector.NewCollector(store, "iex")}
	got, err := s.Select(context.Background(), Params{Mode: ModeDynamic, MaxSymbols: 3, Static: []string{"X", "Y", "Z", "W"}, Now: now})
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y", "Z"}, got)
}
