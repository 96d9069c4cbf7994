package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GreenLine/internal/broker"
	"GreenLine/internal/model"
	"GreenLine/internal/paper"
	"GreenLine/internal/portfolio"
)

func openTest(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "greenline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordPaperRun(t *testing.T) {
	r := openTest(t)

	none, err := r.LastPaperRun()
	require.NoError(t, err)
	assert.Nil(t, none)

	res := &paper.Result{
		RunID:      "run-1",
		StartedAt:  time.Date(2024, 6, 28, 21, 0, 0, 0, time.UTC),
		SignalDate: time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		DryRun:     false,
		Account:    broker.Account{Cash: 1000, BuyingPower: 2000},
		Plan: paper.Plan{
			Enter: []string{"AAA", "BBB"},
			Exit:  []string{"CCC"},
			Sells: []paper.OrderOutcome{{Symbol: "CCC", Side: broker.Sell, Qty: 3, OrderID: "o1", Status: "accepted"}},
			Buys: []paper.OrderOutcome{
				{Symbol: "AAA", Side: broker.Buy, Qty: 5, OrderID: "o2"},
				{Symbol: "BBB", Side: broker.Buy, Qty: 1, Err: errors.New("rejected")},
			},
		},
	}
	require.NoError(t, r.RecordPaperRun(res))

	last, err := r.LastPaperRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, res.SignalDate, last.SignalDate)
	assert.Equal(t, 2, last.Enter)
	assert.Equal(t, 1, last.Exit)
	assert.Equal(t, 2, last.Buys)
	assert.Equal(t, 1, last.Sells)
	assert.Equal(t, 1, last.Failed)
	assert.False(t, last.DryRun)

	var orders int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM paper_orders WHERE run_id = ?`, "run-1").Scan(&orders))
	assert.Equal(t, 3, orders)

	var errText string
	require.NoError(t, r.db.QueryRow(`SELECT error FROM paper_orders WHERE symbol = 'BBB'`).Scan(&errText))
	assert.Equal(t, "rejected", errText)

	assert.Error(t, r.RecordPaperRun(res), "run ids are unique")
}

func TestRecordBacktest(t *testing.T) {
	r := openTest(t)
	d := func(s string) time.Time {
		v, _ := time.Parse("2006-01-02", s)
		return v
	}
	rep := &portfolio.Report{
		RunID: "bt-1", Start: d("2021-01-04"), End: d("2023-12-29"), Symbols: 60,
		InitialCapital: 100000, Slippage: 0.0005,
		Stats: portfolio.Stats{EndValue: 125000, TotalReturn: 0.25, Trades: 2, WinRate: 0.5},
	}
	trades := []model.TradeRecord{
		{Symbol: "AAA", EntryDate: d("2021-02-01"), ExitDate: d("2021-03-01"), EntryPrice: 10, ExitPrice: 12, Quantity: 100, Return: 0.2, DaysHeld: 28, ExitReason: model.ExitMoneyWaveDown},
		{Symbol: "BBB", EntryDate: d("2023-12-01"), ExitDate: d("2023-12-29"), EntryPrice: 20, ExitPrice: 19, Quantity: 50, Return: -0.05, DaysHeld: 28, ExitReason: model.ExitEndOfTest},
	}
	require.NoError(t, r.RecordBacktest(rep, trades))

	var (
		count  int
		reason string
		total  float64
	)
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM backtest_trades WHERE run_id = 'bt-1'`).Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, r.db.QueryRow(`SELECT exit_reason FROM backtest_trades WHERE symbol = 'BBB'`).Scan(&reason))
	assert.Equal(t, "EndOfTest", reason)
	require.NoError(t, r.db.QueryRow(`SELECT total_return FROM backtest_runs WHERE run_id = 'bt-1'`).Scan(&total))
	assert.Equal(t, 0.25, total)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordPaperRun(&paper.Result{}))
	last, err := r.LastPaperRun()
	assert.NoError(t, err)
	assert.Nil(t, last)
	assert.NoError(t, r.Close())
}
