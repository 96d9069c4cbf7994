package strategy

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GreenLine/internal/model"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func TestRank_PercentilesAndTies(t *testing.T) {
	scores := map[string]float64{
		"AAA": 0.30,
		"BBB": 0.10,
		"CCC": 0.30,
		"DDD": -0.05,
		"EEE": math.NaN(),
	}
	snap := Rank(day0, scores, DefaultPercentileThreshold)
	require.Equal(t, 4, snap.Count())

	assert.Equal(t, "AAA", snap.Entries[0].Symbol)
	assert.Equal(t, "CCC", snap.Entries[1].Symbol)
	assert.Equal(t, "BBB", snap.Entries[2].Symbol)
	assert.Equal(t, "DDD", snap.Entries[3].Symbol)

	assert.Equal(t, 100.0, snap.Entries[0].Percentile)
	assert.InDelta(t, 100*(1-1.0/3), snap.Entries[1].Percentile, 1e-9)
	assert.Equal(t, 0.0, snap.Entries[3].Percentile)

	assert.True(t, snap.Eligible("AAA"))
	assert.False(t, snap.Eligible("CCC"))
	assert.False(t, snap.Eligible("EEE"), "undefined score is never eligible")
	_, ok := snap.Lookup("EEE")
	assert.False(t, ok)
}

func TestRank_SingleSymbol(t *testing.T) {
	snap := Rank(day0, map[string]float64{"ONLY": -0.2}, DefaultPercentileThreshold)
	require.Equal(t, 1, snap.Count())
	assert.Equal(t, 100.0, snap.Entries[0].Percentile)
	assert.True(t, snap.Eligible("ONLY"))
}

func TestRank_EligibilityImpliesTopDecile(t *testing.T) {
	for n := 1; n <= 60; n++ {
		scores := make(map[string]float64, n)
		for i := 0; i < n; i++ {
			scores[fmt.Sprintf("S%03d", i)] = float64(i)
		}
		snap := Rank(day0, scores, DefaultPercentileThreshold)
		assert.Equal(t, 100.0, snap.Entries[0].Percentile, "n=%d", n)
		limit := int(math.Ceil(0.1 * float64(n)))
		for _, e := range snap.Entries {
			if e.Eligible {
				assert.LessOrEqual(t, e.Rank, limit, "n=%d symbol=%s", n, e.Symbol)
			}
		}
	}
}

func TestRank_ElevenSymbolsBoundary(t *testing.T) {
	scores := make(map[string]float64, 11)
	for i := 0; i < 11; i++ {
		scores[fmt.Sprintf("S%02d", i)] = float64(i)
	}
	snap := Rank(day0, scores, DefaultPercentileThreshold)
	// rank 2 of 11 sits exactly on the 90th percentile
	assert.Equal(t, 90.0, snap.Entries[1].Percentile)
	assert.True(t, snap.Entries[1].Eligible)
	assert.False(t, snap.Entries[2].Eligible)
}

func TestBuildSnapshots_UsesOnlySymbolsWithBars(t *testing.T) {
	d1, d2 := day0, day0.AddDate(0, 0, 1)
	frames := map[string]*model.IndicatorFrame{
		"AAA": {Symbol: "AAA", Dates: []time.Time{d1, d2}, RSScore: []float64{0.1, 0.2}},
		"BBB": {Symbol: "BBB", Dates: []time.Time{d2}, RSScore: []float64{0.5}},
	}
	snaps := BuildSnapshots(frames, DefaultPercentileThreshold)
	require.Len(t, snaps, 2)
	assert.Equal(t, 1, snaps[d1].Count())
	assert.Equal(t, 2, snaps[d2].Count())
	assert.True(t, snaps[d2].Eligible("BBB"))
	assert.False(t, snaps[d2].Eligible("AAA"))

	cal := Calendar(frames)
	assert.Equal(t, []time.Time{d1, d2}, cal)
}
