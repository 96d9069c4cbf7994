// Package paper turns the latest day's signals into paper orders.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"GreenLine/internal/broker"
	"GreenLine/internal/calculator"
	"GreenLine/internal/collector"
	"GreenLine/internal/metrics"
	"GreenLine/internal/model"
	"GreenLine/internal/strategy"
	"GreenLine/internal/universe"
)

const (
	DefaultLookbackDays = 600
	DefaultMinPrice     = 5.0
)

// Params configures one paper invocation. Runs are dry unless Live is set.
type Params struct {
	Universe         universe.Params
	Strategy         strategy.Params
	LookbackDays     int
	MinPrice         float64
	Live             bool
	PauseFile        string
	CancelOpenOrders bool
	Now              time.Time
}

// Result describes a completed paper invocation.
type Result struct {
	RunID       string
	StartedAt   time.Time
	SignalDate  time.Time
	Universe    int
	Loaded      int
	DryRun      bool
	Paused      bool
	Counts      map[model.SignalKind]int
	Plan        Plan
	Account     broker.Account
	GatewayErr  error
	FetchErrors []collector.SymbolError
}

// Failed returns the orders whose submission errored.
func (r *Result) Failed() []OrderOutcome {
	var out []OrderOutcome
	for _, o := range append(append([]OrderOutcome{}, r.Plan.Sells...), r.Plan.Buys...) {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Runner wires the universe, bar loading, signal engine and order gateway.
type Runner struct {
	Selector  *universe.Selector
	Collector *collector.Collector
	Gateway   broker.Gateway
}

// Run evaluates signals for the most recent bar date and places, or previews, the orders.
func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	if p.LookbackDays <= 0 {
		p.LookbackDays = DefaultLookbackDays
	}
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	res := &Result{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}

	// the flag is read once, before anything else happens
	res.Paused = IsPaused(p.PauseFile)
	res.DryRun = !p.Live || res.Paused
	if res.Paused && p.Live {
		log.Warn().Str("pause_file", p.PauseFile).Msg("trading paused, forcing dry run")
	}

	// positions are read up front so held names outside today's universe are still evaluated
	acct, positions, gwErr := r.readAccount(ctx)
	res.Account = acct

	if p.Universe.Now.IsZero() {
		p.Universe.Now = p.Now
	}
	symbols, err := r.Selector.Select(ctx, p.Universe)
	if err != nil {
		return nil, fmt.Errorf("select universe: %w", err)
	}
	res.Universe = len(symbols)
	extra := heldOutside(symbols, positions)

	end := model.Day(p.Now)
	start := end.AddDate(0, 0, -p.LookbackDays)
	panel, failed, err := r.Collector.LoadPanel(ctx, append(append([]string{}, symbols...), extra...), start, end)
	res.FetchErrors = failed
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	heldPanel := make(model.Panel, len(extra))
	for _, sym := range extra {
		if series, ok := panel[sym]; ok {
			heldPanel[sym] = series
			delete(panel, sym)
		}
	}
	res.Loaded = len(panel)

	out := strategy.Run(panel, p.Strategy)
	res.SignalDate = out.LastDate()
	latest := strategy.Latest(out.Signals, res.SignalDate)
	res.Counts = strategy.Count(out.Signals, res.SignalDate)
	for kind, n := range res.Counts {
		metrics.Signals.WithLabelValues(string(kind)).Add(float64(n))
	}

	if gwErr != nil {
		res.GatewayErr = gwErr
		log.Error().Err(gwErr).Msg("account read failed, orders not planned")
		res.Plan = BuildPlan(latest, nil, broker.Account{}, p.MinPrice)
		res.Plan.Buys, res.Plan.Sells = nil, nil
		return res, nil
	}

	frames := calculator.BuildFrames(heldPanel, p.Strategy.Indicators)
	for sym, f := range out.Frames {
		frames[sym] = f
	}
	latest, unevaluated := applyHeld(latest, frames, positions, res.SignalDate, p.Strategy.Thresholds)
	res.Plan = BuildPlan(latest, positions, acct, p.MinPrice)
	res.Plan.Unevaluated = unevaluated
	if len(unevaluated) > 0 {
		log.Warn().Strs("symbols", unevaluated).Msg("held symbols not evaluated on the signal date")
	}

	if !res.DryRun && p.CancelOpenOrders {
		if c, ok := r.Gateway.(broker.Canceller); ok {
			if err := c.CancelAll(ctx); err != nil {
				log.Warn().Err(err).Msg("cancel open orders")
			}
		}
	}

	r.execute(ctx, res.Plan.Sells, res.DryRun)
	r.execute(ctx, res.Plan.Buys, res.DryRun)

	log.Info().
		Str("run_id", res.RunID).
		Time("signal_date", res.SignalDate).
		Int("enter", len(res.Plan.Enter)).
		Int("exit", len(res.Plan.Exit)).
		Int("buys", len(res.Plan.Buys)).
		Int("sells", len(res.Plan.Sells)).
		Int("failed", len(res.Failed())).
		Bool("dry_run", res.DryRun).
		Msg("paper run complete")
	return res, nil
}

// heldOutside returns held symbols missing from symbols, sorted.
func heldOutside(symbols []string, positions []broker.Position) []string {
	in := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		in[sym] = true
	}
	var out []string
	for _, pos := range positions {
		if pos.Qty > 0 && !in[pos.Symbol] {
			in[pos.Symbol] = true
			out = append(out, pos.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// applyHeld replaces the fold's signal for every held symbol with the exit rules evaluated
// as if the position were open, and lists held symbols that could not be evaluated.
func applyHeld(latest []model.Signal, frames map[string]*model.IndicatorFrame, positions []broker.Position,
	date time.Time, th strategy.Thresholds) ([]model.Signal, []string) {
	bySymbol := make(map[string]int, len(latest))
	for i, s := range latest {
		bySymbol[s.Symbol] = i
	}
	var unevaluated []string
	for _, pos := range positions {
		if pos.Qty <= 0 {
			continue
		}
		f, ok := frames[pos.Symbol]
		if !ok {
			unevaluated = append(unevaluated, pos.Symbol)
			continue
		}
		sig, ok := strategy.HeldSignal(f, date, th)
		if !ok {
			unevaluated = append(unevaluated, pos.Symbol)
			continue
		}
		if i, seen := bySymbol[pos.Symbol]; seen {
			latest[i] = sig
		} else {
			bySymbol[pos.Symbol] = len(latest)
			latest = append(latest, sig)
		}
	}
	sort.Slice(latest, func(i, j int) bool { return latest[i].Symbol < latest[j].Symbol })
	sort.Strings(unevaluated)
	return latest, unevaluated
}

func (r *Runner) readAccount(ctx context.Context) (broker.Account, []broker.Position, error) {
	if r.Gateway == nil {
		return broker.Account{}, nil, errors.New("no order gateway configured")
	}
	acct, err := r.Gateway.Account(ctx)
	if err != nil {
		return broker.Account{}, nil, err
	}
	positions, err := r.Gateway.Positions(ctx)
	if err != nil {
		return acct, nil, err
	}
	return acct, positions, nil
}

func (r *Runner) execute(ctx context.Context, orders []OrderOutcome, dryRun bool) {
	for i := range orders {
		o := &orders[i]
		if o.Skipped != "" {
			continue
		}
		if dryRun {
			o.DryRun = true
			metrics.Orders.WithLabelValues(string(o.Side), "dry_run").Inc()
			log.Info().Str("symbol", o.Symbol).Str("side", string(o.Side)).Int("qty", o.Qty).
				Float64("est_price", o.EstPrice).Msg("dry run order")
			continue
		}
		order, err := r.Gateway.SubmitOrder(ctx, broker.OrderRequest{Symbol: o.Symbol, Qty: o.Qty, Side: o.Side})
		if err != nil {
			o.Err = err
			metrics.Orders.WithLabelValues(string(o.Side), "failed").Inc()
			log.Error().Err(err).Str("symbol", o.Symbol).Str("side", string(o.Side)).Msg("order failed")
			continue
		}
		o.OrderID = order.ID
		o.Status = order.Status
		metrics.Orders.WithLabelValues(string(o.Side), "submitted").Inc()
		log.Info().Str("symbol", o.Symbol).Str("side", string(o.Side)).Int("qty", o.Qty).
			Str("order_id", order.ID).Msg("order submitted")
	}
}
