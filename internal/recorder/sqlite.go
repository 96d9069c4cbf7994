package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"GreenLine/internal/model"
	"GreenLine/internal/paper"
	"GreenLine/internal/portfolio"
)

const dateLayout = "2006-01-02"

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS paper_runs (
			run_id       TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			signal_date  TEXT,
			dry_run      INTEGER,
			paused       INTEGER,
			universe     INTEGER,
			loaded       INTEGER,
			enter_count  INTEGER,
			exit_count   INTEGER,
			buy_count    INTEGER,
			sell_count   INTEGER,
			failed_count INTEGER,
			cash         REAL,
			buying_power REAL,
			gateway_err  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_runs_ts ON paper_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS paper_orders (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL REFERENCES paper_runs(run_id),
			symbol    TEXT NOT NULL,
			side      TEXT NOT NULL,
			qty       INTEGER,
			est_price REAL,
			dry_run   INTEGER,
			order_id  TEXT,
			status    TEXT,
			skipped   TEXT,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_orders_run ON paper_orders(run_id)`,

		`CREATE TABLE IF NOT EXISTS backtest_runs (
			run_id          TEXT PRIMARY KEY,
			timestamp       INTEGER NOT NULL,
			start_date      TEXT,
			end_date        TEXT,
			symbols         INTEGER,
			initial_capital REAL,
			slippage        REAL,
			end_value       REAL,
			total_return    REAL,
			cagr            REAL,
			volatility      REAL,
			sharpe          REAL,
			max_drawdown    REAL,
			trades          INTEGER,
			win_rate        REAL
		)`,

		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL REFERENCES backtest_runs(run_id),
			symbol      TEXT NOT NULL,
			entry_date  TEXT,
			exit_date   TEXT,
			entry_price REAL,
			exit_price  REAL,
			quantity    REAL,
			return_pct  REAL,
			days_held   INTEGER,
			exit_reason TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (r *SQLiteRecorder) RecordPaperRun(res *paper.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO paper_runs
		(run_id, timestamp, signal_date, dry_run, paused, universe, loaded,
		 enter_count, exit_count, buy_count, sell_count, failed_count,
		 cash, buying_power, gateway_err)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.RunID, res.StartedAt.Unix(), res.SignalDate.Format(dateLayout), res.DryRun, res.Paused,
		res.Universe, res.Loaded,
		len(res.Plan.Enter), len(res.Plan.Exit), len(res.Plan.Buys), len(res.Plan.Sells), len(res.Failed()),
		res.Account.Cash, res.Account.BuyingPower, errString(res.GatewayErr),
	)
	if err != nil {
		return fmt.Errorf("insert paper run: %w", err)
	}

	for _, o := range append(append([]paper.OrderOutcome{}, res.Plan.Sells...), res.Plan.Buys...) {
		_, err := tx.Exec(`INSERT INTO paper_orders
			(run_id, symbol, side, qty, est_price, dry_run, order_id, status, skipped, error)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			res.RunID, o.Symbol, string(o.Side), o.Qty, o.EstPrice, o.DryRun,
			o.OrderID, o.Status, o.Skipped, errString(o.Err),
		)
		if err != nil {
			return fmt.Errorf("insert paper order %s: %w", o.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordBacktest(rep *portfolio.Report, trades []model.TradeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st := rep.Stats
	_, err = tx.Exec(`INSERT INTO backtest_runs
		(run_id, timestamp, start_date, end_date, symbols, initial_capital, slippage,
		 end_value, total_return, cagr, volatility, sharpe, max_drawdown, trades, win_rate)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rep.RunID, time.Now().Unix(), rep.Start.Format(dateLayout), rep.End.Format(dateLayout),
		rep.Symbols, rep.InitialCapital, rep.Slippage,
		st.EndValue, st.TotalReturn, st.CAGR, st.Volatility, st.Sharpe, st.MaxDrawdown, st.Trades, st.WinRate,
	)
	if err != nil {
		return fmt.Errorf("insert backtest run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO backtest_trades
		(run_id, symbol, entry_date, exit_date, entry_price, exit_price, quantity, return_pct, days_held, exit_reason)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, t := range trades {
		if _, err := stmt.Exec(rep.RunID, t.Symbol, t.EntryDate.Format(dateLayout), t.ExitDate.Format(dateLayout),
			t.EntryPrice, t.ExitPrice, t.Quantity, t.Return, t.DaysHeld, string(t.ExitReason)); err != nil {
			return fmt.Errorf("insert trade %s: %w", t.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) LastPaperRun() (*PaperRunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		s          PaperRunSummary
		ts         int64
		signalDate string
	)
	err := r.db.QueryRow(`SELECT run_id, timestamp, signal_date, dry_run, paused,
		enter_count, exit_count, buy_count, sell_count, failed_count
		FROM paper_runs ORDER BY timestamp DESC, rowid DESC LIMIT 1`).
		Scan(&s.RunID, &ts, &signalDate, &s.DryRun, &s.Paused, &s.Enter, &s.Exit, &s.Buys, &s.Sells, &s.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last paper run: %w", err)
	}
	s.RecordedAt = time.Unix(ts, 0).UTC()
	if d, err := time.Parse(dateLayout, signalDate); err == nil {
		s.SignalDate = d
	}
	return &s, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
