// Package backtest runs the strategy over a historical window and exports the results.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"GreenLine/internal/collector"
	"GreenLine/internal/model"
	"GreenLine/internal/portfolio"
	"GreenLine/internal/strategy"
	"GreenLine/internal/universe"
)

const (
	DefaultYears          = 3
	DefaultWarmupDays     = 400
	DefaultInitialCapital = 100000.0
)

// Params configures one backtest.
type Params struct {
	Universe       universe.Params
	Strategy       strategy.Params
	Years          int
	WarmupDays     int // calendar days loaded before the window so indicators are defined at its start
	InitialCapital float64
	Slippage       float64
	End            time.Time
}

// Result is a finished backtest.
type Result struct {
	RunID       string
	Symbols     []string
	Loaded      int
	FetchErrors []collector.SymbolError
	Sim         *portfolio.Result
	Report      *portfolio.Report
}

// Runner loads history for the universe and simulates the portfolio.
type Runner struct {
	Selector  *universe.Selector
	Collector *collector.Collector
}

// Run executes the backtest. Only an empty panel or a window with no dates is fatal.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	if p.Years <= 0 {
		p.Years = DefaultYears
	}
	if p.WarmupDays < 0 {
		return nil, errors.New("warmup days must not be negative")
	}
	if p.End.IsZero() {
		p.End = time.Now()
	}
	end := model.Day(p.End)
	start := end.AddDate(-p.Years, 0, 0)
	fetchStart := start.AddDate(0, 0, -p.WarmupDays)

	if p.Universe.Now.IsZero() {
		p.Universe.Now = end
	}
	symbols, err := r.Selector.Select(ctx, p.Universe)
	if err != nil {
		return nil, fmt.Errorf("select universe: %w", err)
	}

	res := &Result{RunID: uuid.NewString(), Symbols: symbols}
	panel, failed, err := r.Collector.LoadPanel(ctx, symbols, fetchStart, end)
	res.FetchErrors = failed
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	res.Loaded = len(panel)

	out := strategy.Run(panel, p.Strategy)
	sim, err := portfolio.Simulate(out.Signals, portfolio.Params{
		InitialCapital: p.InitialCapital,
		Slippage:       p.Slippage,
		Start:          start,
		End:            end,
	})
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	res.Sim = sim
	res.Report = portfolio.NewReport(res.RunID, res.Loaded, sim)

	log.Info().
		Str("run_id", res.RunID).
		Time("start", res.Report.Start).
		Time("end", res.Report.End).
		Int("symbols", res.Loaded).
		Int("trades", len(sim.Trades)).
		Float64("total_return", res.Report.Stats.TotalReturn).
		Msg("backtest complete")
	return res, nil
}

// Export writes the trade log, equity curve and JSON report. Empty paths are skipped.
func (res *Result) Export(tradeLog, equityCurve, reportFile string) error {
	if tradeLog != "" {
		if err := portfolio.WriteTradeLog(tradeLog, res.Sim.Trades); err != nil {
			return fmt.Errorf("write trade log: %w", err)
		}
	}
	if equityCurve != "" {
		if err := portfolio.WriteEquityCurve(equityCurve, res.Sim.Curve); err != nil {
			return fmt.Errorf("write equity curve: %w", err)
		}
	}
	if reportFile != "" {
		if err := portfolio.SaveReport(reportFile, res.Report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}
