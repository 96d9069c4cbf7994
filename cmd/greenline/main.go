package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"GreenLine/internal/backtest"
	"GreenLine/internal/collector"
	"GreenLine/internal/config"
	"GreenLine/internal/metrics"
	"GreenLine/internal/notifier"
	"GreenLine/internal/paper"
	"GreenLine/internal/scheduler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("greenline failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}

	root := &cobra.Command{
		Use:           "greenline",
		Short:         "Above the Green Line signal engine",
		Long:          "Trend and momentum equity strategy: historical backtests, daily paper signals and a scheduled service.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", defaultConfig, "Path to the YAML config file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")
	root.PersistentFlags().Bool("pretty", false, "Human-readable console logs")
	root.PersistentFlags().String("universe", "static", "Universe mode (static|dynamic)")
	root.PersistentFlags().Int("max-symbols", 200, "Maximum number of symbols")
	root.PersistentFlags().String("source", "alpaca", "Bar source (alpaca|yahoo|mock)")

	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Simulate the strategy over recent years",
		RunE:  runBacktest,
	}
	backtestCmd.Flags().Int("years", 3, "Years in the simulation window")
	backtestCmd.Flags().Float64("slippage", 0.0005, "Fractional slippage per fill")
	backtestCmd.Flags().Float64("capital", 100000, "Initial capital")
	backtestCmd.Flags().Int("warmup-days", 400, "Calendar days of history loaded before the window")
	backtestCmd.Flags().String("trade-log", "", "Trade log CSV path (default from config)")

	paperCmd := &cobra.Command{
		Use:   "paper",
		Short: "Compute today's signals and preview or submit paper orders",
		RunE:  runPaper,
	}
	paperCmd.Flags().Bool("live", false, "Submit orders instead of a dry run")
	paperCmd.Flags().Int("lookback-days", 600, "Calendar days of history to load")
	paperCmd.Flags().Float64("min-price", 5, "Minimum last close for new entries")
	paperCmd.Flags().Bool("cancel-open-orders", false, "Cancel open orders before submitting")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run paper mode on a schedule with Telegram commands and /metrics",
		RunE:  runServe,
	}
	serveCmd.Flags().Bool("run-on-start", false, "Run paper mode once at startup")
	serveCmd.Flags().String("metrics-addr", "", "Listen address for /metrics (default from config)")

	root.AddCommand(backtestCmd, paperCmd, serveCmd)
	return root
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, config.ModeBacktest, func(c *config.Config) error {
		f := cmd.Flags()
		if f.Changed("years") {
			c.Backtest.Years, _ = f.GetInt("years")
		}
		if f.Changed("slippage") {
			c.Backtest.Slippage, _ = f.GetFloat64("slippage")
		}
		if f.Changed("capital") {
			c.Backtest.InitialCapital, _ = f.GetFloat64("capital")
		}
		if f.Changed("warmup-days") {
			c.Backtest.WarmupDays, _ = f.GetInt("warmup-days")
		}
		if f.Changed("trade-log") {
			c.Backtest.TradeLog, _ = f.GetString("trade-log")
		}
		return nil
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, cached, err := stores(cfg)
	if err != nil {
		return err
	}
	sel, err := selector(cfg, raw)
	if err != nil {
		return err
	}
	rec := openRecorder(cfg)
	defer rec.Close()

	started := time.Now()
	runner := &backtest.Runner{Selector: sel, Collector: collector.NewCollector(cached, cfg.Alpaca.Feed)}
	res, err := runner.Run(ctx, backtest.Params{
		Universe:       cfg.UniverseParams(),
		Strategy:       cfg.StrategyParams(),
		Years:          cfg.Backtest.Years,
		WarmupDays:     cfg.Backtest.WarmupDays,
		InitialCapital: cfg.Backtest.InitialCapital,
		Slippage:       cfg.Backtest.Slippage,
	})
	metrics.RunDuration.WithLabelValues("backtest").Observe(time.Since(started).Seconds())
	if err != nil {
		return err
	}
	metrics.LastRun.WithLabelValues("backtest").SetToCurrentTime()

	if err := res.Export(cfg.Backtest.TradeLog, cfg.Backtest.EquityCurve, cfg.Backtest.ReportFile); err != nil {
		return err
	}
	if err := rec.RecordBacktest(res.Report, res.Sim.Trades); err != nil {
		log.Error().Err(err).Msg("record backtest")
	}

	summary := notifier.FormatBacktestSummary(res.Report)
	fmt.Fprint(cmd.OutOrStdout(), summary)
	fmt.Fprintf(cmd.OutOrStdout(), "Trade log: %s\n", cfg.Backtest.TradeLog)
	if tn := telegram(cfg); tn != nil {
		if err := tn.SendWithRetry(ctx, summary, 3); err != nil {
			log.Error().Err(err).Msg("send backtest summary")
		}
	}
	return nil
}

func paperOverrides(cmd *cobra.Command) func(*config.Config) error {
	return func(c *config.Config) error {
		f := cmd.Flags()
		if f.Changed("live") {
			c.Paper.Live, _ = f.GetBool("live")
		}
		if f.Changed("lookback-days") {
			c.Paper.LookbackDays, _ = f.GetInt("lookback-days")
		}
		if f.Changed("min-price") {
			c.Paper.MinPrice, _ = f.GetFloat64("min-price")
		}
		if f.Changed("cancel-open-orders") {
			c.Paper.CancelOpenOrders, _ = f.GetBool("cancel-open-orders")
		}
		if f.Changed("metrics-addr") {
			c.Metrics.Addr, _ = f.GetString("metrics-addr")
		}
		return nil
	}
}

// paperJob wires the paper runner and its publishers.
func paperJob(cfg *config.Config) (*scheduler.PaperJob, func(), error) {
	raw, cached, err := stores(cfg)
	if err != nil {
		return nil, nil, err
	}
	sel, err := selector(cfg, raw)
	if err != nil {
		return nil, nil, err
	}
	gw, err := gateway(cfg)
	if err != nil {
		return nil, nil, err
	}
	rec := openRecorder(cfg)
	job := &scheduler.PaperJob{
		Runner: &paper.Runner{
			Selector:  sel,
			Collector: collector.NewCollector(cached, cfg.Alpaca.Feed),
			Gateway:   gw,
		},
		Params:     cfg.PaperParams(),
		Recorder:   rec,
		ReportFile: cfg.Paper.ReportFile,
	}
	if tn := telegram(cfg); tn != nil {
		job.Notifier = tn
	}
	return job, func() { rec.Close() }, nil
}

func runPaper(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, config.ModePaper, paperOverrides(cmd))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, closeFn, err := paperJob(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	_, summary, err := job.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), summary)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, config.ModeServe, paperOverrides(cmd))
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	job, closeFn, err := paperJob(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("schedule timezone: %w", err)
	}
	sched := scheduler.NewScheduler(ctx, job, job.Recorder, cfg.Paper.PauseFile, loc)
	if err := sched.Register(cfg.Schedule.PaperCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn := telegram(cfg); tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}
	if run, _ := cmd.Flags().GetBool("run-on-start"); run {
		go sched.RunPaperNow()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
			stop()
		}
	}()

	log.Info().Str("cron", cfg.Schedule.PaperCron).Str("tz", cfg.Schedule.Timezone).Msg("greenline is running")
	<-ctx.Done()

	log.Info().Msg("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
