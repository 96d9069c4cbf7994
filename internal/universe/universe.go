// Package universe decides which symbols a run considers.
package universe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"GreenLine/internal/calculator"
	"GreenLine/internal/collector"
	"GreenLine/internal/model"
)

type Mode string

const (
	ModeStatic  Mode = "static"
	ModeDynamic Mode = "dynamic"
)

const (
	DefaultMaxSymbols     = 200
	DefaultCandidateLimit = 1500
	DefaultLookbackDays   = 90
)

// DefaultSymbols is the curated static list: broad and sector ETFs followed by mega caps.
var DefaultSymbols = []string{
	"SPY", "QQQ", "IWM", "DIA", "VTI", "VOO", "IVV", "XLK", "XLF", "XLE",
	"XLV", "XLI", "XLY", "XLP", "XLB", "XLU", "XLRE", "XLC", "XBI", "SMH",
	"SOXX", "ARKK", "ARKQ", "ARKG", "EFA", "EEM", "IEMG", "TLT", "IEF", "HYG",
	"LQD", "GLD", "SLV", "USO", "GDX", "VNQ", "VGK", "VWO", "VIG", "VYM",
	"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "BRK.B", "JPM", "UNH",
	"JNJ", "XOM", "PG", "HD", "AVGO", "LLY", "V", "MA", "COST", "MRK",
}

// Params controls selection.
type Params struct {
	Mode           Mode
	MaxSymbols     int      // <= 0 means no cap
	Static         []string // overrides DefaultSymbols when non-empty
	CandidateLimit int
	LookbackDays   int
	Window         int // trailing bars for mean dollar volume
	Now            time.Time
}

func (p Params) withDefaults() Params {
	if p.Mode == "" {
		p.Mode = ModeStatic
	}
	if len(p.Static) == 0 {
		p.Static = DefaultSymbols
	}
	if p.CandidateLimit <= 0 {
		p.CandidateLimit = DefaultCandidateLimit
	}
	if p.LookbackDays <= 0 {
		p.LookbackDays = DefaultLookbackDays
	}
	if p.Window <= 0 {
		p.Window = calculator.DefaultDollarVolumeWindow
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	return p
}

// Selector resolves a universe. Assets and Collector are only needed in dynamic mode.
type Selector struct {
	Assets    collector.AssetLister
	Collector *collector.Collector
}

// Select returns the ordered symbol list for p.
func (s *Selector) Select(ctx context.Context, p Params) ([]string, error) {
	p = p.withDefaults()
	switch p.Mode {
	case ModeStatic:
		return Static(p.Static, p.MaxSymbols), nil
	case ModeDynamic:
		return s.dynamic(ctx, p)
	default:
		return nil, fmt.Errorf("unknown universe mode %q", p.Mode)
	}
}

func (s *Selector) dynamic(ctx context.Context, p Params) ([]string, error) {
	if s.Assets == nil || s.Collector == nil {
		return nil, fmt.Errorf("dynamic universe needs an asset lister and a collector")
	}
	assets, err := s.Assets.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	candidates := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.Tradable {
			candidates = append(candidates, a.Symbol)
		}
	}
	if len(candidates) > p.CandidateLimit {
		candidates = candidates[:p.CandidateLimit]
	}

	end := model.Day(p.Now)
	start := end.AddDate(0, 0, -p.LookbackDays)
	panel, failed, err := s.Collector.LoadPanel(ctx, candidates, start, end)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	ranked := RankByDollarVolume(panel, p.Window, p.MaxSymbols)
	if err != nil || len(ranked) == 0 {
		log.Warn().
			Err(err).
			Int("candidates", len(candidates)).
			Int("failed", len(failed)).
			Msg("dynamic universe returned no data, falling back to static list")
		return Static(p.Static, p.MaxSymbols), nil
	}
	log.Info().Int("candidates", len(candidates)).Int("selected", len(ranked)).Msg("dynamic universe ranked")
	return ranked, nil
}

// Static trims, upper-cases and de-duplicates list, keeping first occurrences, then caps it.
func Static(list []string, max int) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, sym := range list {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

type liquidity struct {
	symbol string
	mean   float64
}

// RankByDollarVolume orders symbols by mean close*volume over the trailing window bars,
// descending with ties broken by symbol. Symbols with fewer than window bars are skipped.
func RankByDollarVolume(panel model.Panel, window, max int) []string {
	ranked := make([]liquidity, 0, len(panel))
	for sym, series := range panel {
		mean, ok := calculator.MeanDollarVolume(series.Bars, window)
		if !ok {
			continue
		}
		ranked = append(ranked, liquidity{symbol: sym, mean: mean})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].mean != ranked[j].mean {
			return ranked[i].mean > ranked[j].mean
		}
		return ranked[i].symbol < ranked[j].symbol
	})
	if max > 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.symbol
	}
	return out
}
