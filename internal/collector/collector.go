package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"GreenLine/internal/metrics"
	"GreenLine/internal/model"
)

// MockStore serves a fixed panel and is used for development and tests.
type MockStore struct {
	Panel  model.Panel
	Errs   map[string]error
	Assets []Asset

	mu    sync.Mutex
	calls int
}

func (m *MockStore) Name() string { return "mock" }

func (m *MockStore) GetBars(_ context.Context, symbol string, start, end time.Time, _ string) (model.BarSeries, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if err := m.Errs[symbol]; err != nil {
		return model.BarSeries{Symbol: symbol}, err
	}
	series, ok := m.Panel[symbol]
	if !ok {
		return model.BarSeries{Symbol: symbol}, nil
	}
	return Window(series, start, end), nil
}

// Calls returns how many GetBars requests reached the mock.
func (m *MockStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockStore) ListAssets(context.Context) ([]Asset, error) {
	return m.Assets, nil
}

// GenerateBars builds n weekday bars ending on end. Prices follow a slow drift with a
// deterministic oscillation so indicators cross their thresholds.
func GenerateBars(symbol string, end time.Time, n int, base, volume float64) model.BarSeries {
	dates := make([]time.Time, 0, n)
	for d := model.Day(end); len(dates) < n; d = d.AddDate(0, 0, -1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}
	bars := make([]model.OHLCV, n)
	for i := range bars {
		d := dates[n-1-i]
		p := base * (1 + 0.0004*float64(i)) * (1 + 0.05*math.Sin(float64(i)/9))
		bars[i] = model.OHLCV{
			Time:   d,
			Open:   p * 0.998,
			High:   p * 1.01,
			Low:    p * 0.99,
			Close:  p,
			Volume: volume,
		}
	}
	return model.BarSeries{Symbol: symbol, Bars: bars}
}

const DefaultConcurrency = 8

// Collector loads a bar panel for a symbol list.
type Collector struct {
	Store       BarStore
	Feed        string
	Concurrency int
}

// NewCollector creates a new Collector.
func NewCollector(store BarStore, feed string) *Collector {
	return &Collector{Store: store, Feed: feed, Concurrency: DefaultConcurrency}
}

// LoadPanel fetches [start, end] for every symbol. Failures are collected per symbol and never
// abort the load; symbols with no bars are left out of the panel. ErrEmptyPanel is returned when
// nothing at all was loaded.
func (c *Collector) LoadPanel(ctx context.Context, symbols []string, start, end time.Time) (model.Panel, []SymbolError, error) {
	panel := make(model.Panel, len(symbols))
	var failed []SymbolError

	if multi, ok := c.Store.(MultiBarStore); ok {
		p, err := multi.GetBarsMulti(ctx, symbols, start, end, c.Feed)
		if err != nil {
			metrics.BarRequests.WithLabelValues(c.Store.Name(), "error").Inc()
			for _, sym := range symbols {
				failed = append(failed, SymbolError{Symbol: sym, Err: err})
			}
		} else {
			metrics.BarRequests.WithLabelValues(c.Store.Name(), "ok").Inc()
			for sym, s := range p {
				panel[sym] = s
			}
		}
	} else {
		panel, failed = c.loadEach(ctx, symbols, start, end)
	}

	if err := ctx.Err(); err != nil {
		return panel, failed, err
	}

	bars := 0
	for _, s := range panel {
		bars += s.Len()
	}
	metrics.BarsLoaded.WithLabelValues(c.Store.Name()).Add(float64(bars))
	sort.Slice(failed, func(i, j int) bool { return failed[i].Symbol < failed[j].Symbol })
	for _, f := range failed {
		log.Warn().Str("symbol", f.Symbol).Err(f.Err).Msg("bar fetch failed")
	}
	log.Info().
		Str("store", c.Store.Name()).
		Int("requested", len(symbols)).
		Int("loaded", len(panel)).
		Int("failed", len(failed)).
		Int("bars", bars).
		Msg("panel loaded")

	if len(panel) == 0 && len(symbols) > 0 {
		return panel, failed, ErrEmptyPanel
	}
	return panel, failed, nil
}

func (c *Collector) loadEach(ctx context.Context, symbols []string, start, end time.Time) (model.Panel, []SymbolError) {
	workers := c.Concurrency
	if workers <= 0 {
		workers = DefaultConcurrency
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		panel  = make(model.Panel, len(symbols))
		failed []SymbolError
		sem    = make(chan struct{}, workers)
	)
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				failed = append(failed, SymbolError{Symbol: sym, Err: ctx.Err()})
				mu.Unlock()
				return
			}

			series, err := c.Store.GetBars(ctx, sym, start, end, c.Feed)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.BarRequests.WithLabelValues(c.Store.Name(), "error").Inc()
				failed = append(failed, SymbolError{Symbol: sym, Err: fmt.Errorf("get bars: %w", err)})
				return
			}
			metrics.BarRequests.WithLabelValues(c.Store.Name(), "ok").Inc()
			series = Normalize(sym, series.Bars)
			if !series.Empty() {
				panel[sym] = series
			}
		}(sym)
	}
	wg.Wait()
	return panel, failed
}
