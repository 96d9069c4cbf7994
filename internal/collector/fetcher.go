package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"GreenLine/internal/model"
)

// BarStore supplies daily OHLCV history for one symbol over [start, end].
// A short or empty series is not an error.
type BarStore interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time, feed string) (model.BarSeries, error)
	Name() string
}

// MultiBarStore can fetch several symbols per request.
type MultiBarStore interface {
	BarStore
	GetBarsMulti(ctx context.Context, symbols []string, start, end time.Time, feed string) (model.Panel, error)
}

// Asset is a listed instrument.
type Asset struct {
	Symbol   string
	Exchange string
	Tradable bool
}

// AssetLister enumerates active US equities.
type AssetLister interface {
	ListAssets(ctx context.Context) ([]Asset, error)
}

var (
	ErrBreakerOpen = errors.New("bar store circuit breaker open")
	ErrEmptyPanel  = errors.New("no symbol returned any bars")
)

// SymbolError records a fetch failure for one symbol. Loading continues past it.
type SymbolError struct {
	Symbol string
	Err    error
}

func (e SymbolError) Error() string { return fmt.Sprintf("%s: %v", e.Symbol, e.Err) }

func (e SymbolError) Unwrap() error { return e.Err }

// Normalize puts bars on UTC calendar dates in strictly increasing order. Later duplicates of a
// date replace earlier ones; bars with a non-positive or non-finite close are dropped.
func Normalize(symbol string, bars []model.OHLCV) model.BarSeries {
	clean := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		b.Time = model.Day(b.Time)
		clean = append(clean, b)
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Time.Before(clean[j].Time) })

	out := clean[:0]
	for _, b := range clean {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return model.BarSeries{Symbol: symbol, Bars: out}
}

// Window returns the bars of s dated within [start, end].
func Window(s model.BarSeries, start, end time.Time) model.BarSeries {
	start, end = model.Day(start), model.Day(end)
	lo := sort.Search(len(s.Bars), func(i int) bool { return !s.Bars[i].Time.Before(start) })
	hi := sort.Search(len(s.Bars), func(i int) bool { return s.Bars[i].Time.After(end) })
	if lo >= hi {
		return model.BarSeries{Symbol: s.Symbol}
	}
	bars := make([]model.OHLCV, hi-lo)
	copy(bars, s.Bars[lo:hi])
	return model.BarSeries{Symbol: s.Symbol, Bars: bars}
}
