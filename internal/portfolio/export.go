package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"GreenLine/internal/model"
)

const dateLayout = "2006-01-02"

// SortTrades orders a copy of trades by entry date then symbol.
func SortTrades(trades []model.TradeRecord) []model.TradeRecord {
	out := make([]model.TradeRecord, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// WriteTradeLog exports the trade ledger as CSV.
func WriteTradeLog(path string, trades []model.TradeRecord) error {
	rows := [][]string{{"symbol", "entry_date", "entry_price", "exit_date", "exit_price", "return_pct", "days_held", "exit_reason"}}
	for _, t := range SortTrades(trades) {
		rows = append(rows, []string{
			t.Symbol,
			t.EntryDate.Format(dateLayout),
			ftoa(t.EntryPrice),
			t.ExitDate.Format(dateLayout),
			ftoa(t.ExitPrice),
			ftoa(t.Return),
			strconv.Itoa(t.DaysHeld),
			string(t.ExitReason),
		})
	}
	return writeCSV(path, rows)
}

// WriteEquityCurve exports the equity curve as CSV.
func WriteEquityCurve(path string, curve []model.EquityPoint) error {
	rows := [][]string{{"date", "value", "cash", "open_positions"}}
	for _, p := range curve {
		rows = append(rows, []string{p.Date.Format(dateLayout), ftoa(p.Value), ftoa(p.Cash), strconv.Itoa(p.OpenPositions)})
	}
	return writeCSV(path, rows)
}

// createFile opens export targets; tests swap it to observe close failures.
var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

func writeCSV(path string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	f, err := createFile(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func ftoa(x float64) string { return strconv.FormatFloat(x, 'f', 6, 64) }
