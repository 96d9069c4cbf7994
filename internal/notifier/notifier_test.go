package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GreenLine/internal/broker"
	"GreenLine/internal/model"
	"GreenLine/internal/paper"
	"GreenLine/internal/portfolio"
	"GreenLine/internal/recorder"
)

var signalDate = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

func TestFormatPaperSummary_ListsEverySymbol(t *testing.T) {
	res := &paper.Result{
		SignalDate: signalDate,
		DryRun:     true,
		Paused:     true,
		Universe:   60,
		Loaded:     58,
		Counts:     map[model.SignalKind]int{model.SignalEnter: 12, model.SignalExit: 2},
		Account:    broker.Account{Cash: 1000},
		Plan: paper.Plan{BuyingPower: 1000, AllocPerBuy: 250},
	}
	for i := 0; i < 12; i++ {
		sym := string(rune('A'+i)) + "XX"
		res.Plan.Buys = append(res.Plan.Buys, paper.OrderOutcome{Symbol: sym, Side: broker.Buy, Qty: 1, EstPrice: 10})
	}
	res.Plan.Sells = []paper.OrderOutcome{{Symbol: "OUT", Side: broker.Sell, Qty: 5, EstPrice: 20}}
	res.Plan.Buys = append(res.Plan.Buys, paper.OrderOutcome{Symbol: "BIG", Side: broker.Buy, Skipped: "allocation below one share"})

	out := FormatPaperSummary(res)
	assert.Contains(t, out, "2024-06-28")
	assert.Contains(t, out, "DRY RUN (paused)")
	assert.Contains(t, out, "ENTER 12  EXIT 2")
	for _, o := range res.Plan.Buys[:12] {
		assert.Contains(t, out, o.Symbol+" x1 @10.00")
	}
	assert.Contains(t, out, "Sells: OUT x5 @20.00")
	assert.Contains(t, out, "Skipped: BIG (allocation below one share)")
	assert.NotContains(t, out, "Failed")
	assert.NotContains(t, out, "not evaluated")

	res.Plan.Unevaluated = []string{"DELISTED"}
	assert.Contains(t, FormatPaperSummary(res), "Held, not evaluated: DELISTED")
}

func TestFormatPaperSummary_FailuresAndGatewayError(t *testing.T) {
	res := &paper.Result{
		SignalDate: signalDate,
		Plan: paper.Plan{
			Buys: []paper.OrderOutcome{{Symbol: "AAA", Side: broker.Buy, Qty: 2, Err: errors.New("rejected")}},
		},
	}
	out := FormatPaperSummary(res)
	assert.Contains(t, out, "Mode: LIVE")
	assert.Contains(t, out, "BUY AAA: rejected")
	assert.Contains(t, out, "Sells: none")

	res.GatewayErr = errors.New("unauthorized")
	res.Plan.Enter = []string{"AAA"}
	out = FormatPaperSummary(res)
	assert.Contains(t, out, "Account unavailable: unauthorized")
	assert.Contains(t, out, "Entry candidates: AAA")
}

func TestFormatBacktestSummary(t *testing.T) {
	rep := &portfolio.Report{
		Start: time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC), End: signalDate,
		Symbols: 60, InitialCapital: 100000, Slippage: 0.0005,
		Stats: portfolio.Stats{EndValue: 125000, TotalReturn: 0.25, MaxDrawdown: -0.1234, Trades: 40, WinRate: 0.55},
	}
	out := FormatBacktestSummary(rep)
	assert.Contains(t, out, "2021-01-04 to 2024-06-28")
	assert.Contains(t, out, "Total return: 25.00%")
	assert.Contains(t, out, "Max drawdown: -12.34%")
	assert.Contains(t, out, "Trades: 40  Win rate: 55.0%")
}

func TestFormatStatus(t *testing.T) {
	assert.Contains(t, FormatStatus(false, nil), "No paper runs")
	out := FormatStatus(true, &recorder.PaperRunSummary{SignalDate: signalDate, DryRun: true, Buys: 3})
	assert.Contains(t, out, "paused")
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "buys 3")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc\n", 10)
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, parts)

	long := strings.Repeat("x", 25)
	parts = splitMessage(long, 10)
	assert.Equal(t, []string{"xxxxxxxxxx", "xxxxxxxxxx", "xxxxx"}, parts)
}

func TestSendWithRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["chat_id"])
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	require.NoError(t, n.SendWithRetry(context.Background(), "hello", 2))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestStartPolling_FiltersChat(t *testing.T) {
	var (
		mu    sync.Mutex
		sent  []string
		polls int32
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if atomic.AddInt32(&polls, 1) > 1 {
				cancel()
				_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":[
				{"update_id":1,"message":{"text":"/status","chat":{"id":42}}},
				{"update_id":2,"message":{"text":"/pause","chat":{"id":7}}}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			sent = append(sent, body["text"])
			mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	n := NewTelegramNotifier("T", "42", "")
	n.BaseURL = srv.URL
	var got []string
	n.StartPolling(ctx, func(_ context.Context, cmd string) string {
		got = append(got, cmd)
		return "ok " + cmd
	})
	assert.Equal(t, []string{"/status"}, got)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ok /status"}, sent)
}
