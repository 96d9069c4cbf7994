package notifier

import (
	"fmt"
	"strings"

	"GreenLine/internal/model"
	"GreenLine/internal/paper"
	"GreenLine/internal/portfolio"
	"GreenLine/internal/recorder"
)

const dateLayout = "2006-01-02"

func orderList(orders []paper.OrderOutcome) string {
	var items []string
	for _, o := range orders {
		if o.Skipped != "" {
			continue
		}
		items = append(items, fmt.Sprintf("%s x%d @%.2f", o.Symbol, o.Qty, o.EstPrice))
	}
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func symbolList(symbols []string) string {
	if len(symbols) == 0 {
		return "none"
	}
	return strings.Join(symbols, ", ")
}

// FormatPaperSummary renders a paper run as plain text with the full buy and sell lists.
func FormatPaperSummary(res *paper.Result) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("GreenLine paper run | %s\n", res.SignalDate.Format(dateLayout)))
	mode := "LIVE"
	if res.DryRun {
		mode = "DRY RUN"
		if res.Paused {
			mode += " (paused)"
		}
	}
	b.WriteString(fmt.Sprintf("Mode: %s\n", mode))
	b.WriteString(fmt.Sprintf("Universe: %d symbols, %d loaded, %d fetch errors\n",
		res.Universe, res.Loaded, len(res.FetchErrors)))
	b.WriteString(fmt.Sprintf("Signals: ENTER %d  EXIT %d  HOLD %d  NONE %d\n",
		res.Counts[model.SignalEnter], res.Counts[model.SignalExit],
		res.Counts[model.SignalHold], res.Counts[model.SignalNone]))

	if res.GatewayErr != nil {
		b.WriteString(fmt.Sprintf("Account unavailable: %v\n", res.GatewayErr))
		b.WriteString(fmt.Sprintf("Entry candidates: %s\n", symbolList(res.Plan.Enter)))
		b.WriteString(fmt.Sprintf("Exit candidates: %s\n", symbolList(res.Plan.Exit)))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Cash: %.2f  Buying power: %.2f  Alloc per buy: %.2f\n",
		res.Account.Cash, res.Plan.BuyingPower, res.Plan.AllocPerBuy))
	b.WriteString(fmt.Sprintf("Positions held: %d\n\n", len(res.Plan.Held)))
	b.WriteString(fmt.Sprintf("Buys: %s\n", orderList(res.Plan.Buys)))
	b.WriteString(fmt.Sprintf("Sells: %s\n", orderList(res.Plan.Sells)))

	var skipped []string
	for _, o := range append(append([]paper.OrderOutcome{}, res.Plan.Sells...), res.Plan.Buys...) {
		if o.Skipped != "" {
			skipped = append(skipped, fmt.Sprintf("%s (%s)", o.Symbol, o.Skipped))
		}
	}
	if len(skipped) > 0 {
		b.WriteString(fmt.Sprintf("Skipped: %s\n", strings.Join(skipped, ", ")))
	}
	if len(res.Plan.Unevaluated) > 0 {
		b.WriteString(fmt.Sprintf("Held, not evaluated: %s\n", strings.Join(res.Plan.Unevaluated, ", ")))
	}
	if failed := res.Failed(); len(failed) > 0 {
		b.WriteString("Failed:\n")
		for _, o := range failed {
			b.WriteString(fmt.Sprintf("  %s %s: %v\n", strings.ToUpper(string(o.Side)), o.Symbol, o.Err))
		}
	}
	return b.String()
}

// FormatBacktestSummary renders the backtest statistics.
func FormatBacktestSummary(rep *portfolio.Report) string {
	var b strings.Builder
	st := rep.Stats

	b.WriteString(fmt.Sprintf("GreenLine backtest | %s to %s\n",
		rep.Start.Format(dateLayout), rep.End.Format(dateLayout)))
	b.WriteString(fmt.Sprintf("Symbols: %d  Capital: %.2f  Slippage: %.4f\n\n",
		rep.Symbols, rep.InitialCapital, rep.Slippage))
	b.WriteString(fmt.Sprintf("End value:    %.2f\n", st.EndValue))
	b.WriteString(fmt.Sprintf("Total return: %.2f%%\n", st.TotalReturn*100))
	b.WriteString(fmt.Sprintf("CAGR:         %.2f%%\n", st.CAGR*100))
	b.WriteString(fmt.Sprintf("Volatility:   %.2f%%\n", st.Volatility*100))
	b.WriteString(fmt.Sprintf("Sharpe:       %.2f\n", st.Sharpe))
	b.WriteString(fmt.Sprintf("Max drawdown: %.2f%%\n", st.MaxDrawdown*100))
	b.WriteString(fmt.Sprintf("Trades: %d  Win rate: %.1f%%  Avg trade: %.2f%%\n",
		st.Trades, st.WinRate*100, st.AvgTradeReturn*100))
	return b.String()
}

// FormatStatus answers the /status command.
func FormatStatus(paused bool, last *recorder.PaperRunSummary) string {
	var b strings.Builder
	state := "active"
	if paused {
		state = "paused (runs are forced to dry run)"
	}
	b.WriteString(fmt.Sprintf("Trading: %s\n", state))
	if last == nil {
		b.WriteString("No paper runs recorded yet.\n")
		return b.String()
	}
	mode := "live"
	if last.DryRun {
		mode = "dry run"
	}
	b.WriteString(fmt.Sprintf("Last run: %s (%s), signals for %s\n",
		last.RecordedAt.Format("2006-01-02 15:04"), mode, last.SignalDate.Format(dateLayout)))
	b.WriteString(fmt.Sprintf("ENTER %d  EXIT %d  buys %d  sells %d  failed %d\n",
		last.Enter, last.Exit, last.Buys, last.Sells, last.Failed))
	return b.String()
}
