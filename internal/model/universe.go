package model

import "time"

// RankEntry is one symbol's position within a cross-sectional snapshot.
type RankEntry struct {
	Symbol     string
	Score      float64
	Rank       int     // 1 = strongest
	Percentile float64 // 0..100, higher = stronger
	Eligible   bool
}

// UniverseSnapshot is the ranked set of symbols with a defined momentum score on Date.
type UniverseSnapshot struct {
	Date    time.Time
	Entries []RankEntry
	index   map[string]int
}

// NewUniverseSnapshot builds a snapshot from entries already ordered by rank.
func NewUniverseSnapshot(date time.Time, entries []RankEntry) UniverseSnapshot {
	idx := make(map[string]int, len(entries))
	for i, e := range entries {
		idx[e.Symbol] = i
	}
	return UniverseSnapshot{Date: date, Entries: entries, index: idx}
}

// Lookup returns the entry for symbol, if ranked.
func (u UniverseSnapshot) Lookup(symbol string) (RankEntry, bool) {
	i, ok := u.index[symbol]
	if !ok {
		return RankEntry{}, false
	}
	return u.Entries[i], true
}

// Eligible reports whether symbol passed the percentile threshold on the snapshot date.
// Unranked symbols are never eligible.
func (u UniverseSnapshot) Eligible(symbol string) bool {
	e, ok := u.Lookup(symbol)
	return ok && e.Eligible
}

// Count returns the number of ranked symbols.
func (u UniverseSnapshot) Count() int { return len(u.Entries) }
