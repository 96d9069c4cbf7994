package strategy

import (
	"sort"
	"time"

	"GreenLine/internal/model"
)

// DefaultPercentileThreshold is the minimum momentum percentile for entry eligibility.
const DefaultPercentileThreshold = 90.0

// Rank orders symbols by momentum score on one date and flags the top percentiles.
// Undefined scores are excluded from the ranking and are never eligible.
// Ties are broken by symbol so the result is deterministic.
func Rank(date time.Time, scores map[string]float64, threshold float64) model.UniverseSnapshot {
	entries := make([]model.RankEntry, 0, len(scores))
	for sym, score := range scores {
		if !model.Defined(score) {
			continue
		}
		entries = append(entries, model.RankEntry{Symbol: sym, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Symbol < entries[j].Symbol
	})

	n := len(entries)
	for i := range entries {
		rank := i + 1
		entries[i].Rank = rank
		entries[i].Percentile = percentile(rank, n)
		entries[i].Eligible = entries[i].Percentile >= threshold
	}
	return model.NewUniverseSnapshot(date, entries)
}

// percentile is 100*(1-(rank-1)/(count-1)), written to stay exact on integer inputs.
func percentile(rank, count int) float64 {
	if count <= 1 {
		return 100
	}
	return 100 * float64(count-rank) / float64(count-1)
}

// BuildSnapshots ranks every date present in any frame, using only the symbols
// that have a bar on that date.
func BuildSnapshots(frames map[string]*model.IndicatorFrame, threshold float64) map[time.Time]model.UniverseSnapshot {
	byDate := make(map[time.Time]map[string]float64)
	for sym, f := range frames {
		for i, d := range f.Dates {
			scores, ok := byDate[d]
			if !ok {
				scores = make(map[string]float64)
				byDate[d] = scores
			}
			scores[sym] = f.RSScore[i]
		}
	}

	out := make(map[time.Time]model.UniverseSnapshot, len(byDate))
	for d, scores := range byDate {
		out[d] = Rank(d, scores, threshold)
	}
	return out
}

// Calendar returns the sorted union of all frame dates.
func Calendar(frames map[string]*model.IndicatorFrame) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, f := range frames {
		for _, d := range f.Dates {
			seen[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
