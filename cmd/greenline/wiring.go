package main

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"GreenLine/internal/alpaca"
	"GreenLine/internal/broker"
	"GreenLine/internal/collector"
	"GreenLine/internal/config"
	"GreenLine/internal/logger"
	"GreenLine/internal/model"
	"GreenLine/internal/notifier"
	"GreenLine/internal/recorder"
	"GreenLine/internal/universe"
)

// loadConfig reads the config file, applies command-line overrides, sets up logging and
// validates the result for mode.
func loadConfig(cmd *cobra.Command, mode config.Mode, override func(*config.Config) error) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty, _ = cmd.Flags().GetBool("pretty")
	}
	if cmd.Flags().Changed("universe") {
		cfg.Universe.Mode, _ = cmd.Flags().GetString("universe")
	}
	if cmd.Flags().Changed("max-symbols") {
		cfg.Universe.MaxSymbols, _ = cmd.Flags().GetInt("max-symbols")
	}
	if cmd.Flags().Changed("source") {
		cfg.Data.Source, _ = cmd.Flags().GetString("source")
	}
	if override != nil {
		if err := override(cfg); err != nil {
			return nil, err
		}
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	if err := cfg.Validate(mode); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	log.Info().Str("config", path).Str("mode", string(mode)).Str("source", cfg.Data.Source).
		Str("universe", cfg.Universe.Mode).Msg("configuration loaded")
	return cfg, nil
}

func dataClient(cfg *config.Config) (*alpaca.Client, error) {
	return alpaca.NewClient(alpaca.Options{
		Name:      "alpaca-data",
		BaseURL:   cfg.Alpaca.DataURL,
		KeyID:     cfg.Alpaca.APIKey,
		Secret:    cfg.Alpaca.APISecret,
		Proxy:     cfg.Proxy,
		RateLimit: cfg.Alpaca.RateLimit,
		Burst:     cfg.Alpaca.Burst,
	})
}

func tradingClient(cfg *config.Config) (*alpaca.Client, error) {
	return alpaca.NewClient(alpaca.Options{
		Name:    "alpaca-trading",
		BaseURL: cfg.Alpaca.TradingURL,
		KeyID:   cfg.Alpaca.APIKey,
		Secret:  cfg.Alpaca.APISecret,
		Proxy:   cfg.Proxy,
	})
}

// stores returns the raw bar store and the one used for panels, which adds the on-disk cache.
func stores(cfg *config.Config) (raw, cached collector.BarStore, err error) {
	switch cfg.Data.Source {
	case "alpaca":
		client, err := dataClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		raw = collector.NewAlpacaStore(client)
	case "yahoo":
		raw = collector.NewYahooStore(cfg.Proxy)
	case "mock":
		m := mockStore(cfg)
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
	cached = raw
	if cfg.Data.CacheDir != "" {
		cached = collector.NewCachedStore(raw, cfg.Data.CacheDir)
	}
	log.Info().Str("store", cached.Name()).Msg("bar store ready")
	return raw, cached, nil
}

// mockStore generates deterministic bars for the configured static list.
func mockStore(cfg *config.Config) *collector.MockStore {
	symbols := universe.Static(cfg.Universe.Symbols, 0)
	if len(symbols) == 0 {
		symbols = universe.DefaultSymbols
	}
	end := model.Day(time.Now())
	m := &collector.MockStore{Panel: model.Panel{}}
	for _, sym := range symbols {
		h := fnv.New32a()
		_, _ = h.Write([]byte(sym))
		base := 10 + float64(h.Sum32()%490)
		m.Panel[sym] = collector.GenerateBars(sym, end, 1500, base, float64(100000+h.Sum32()%1000000))
		m.Assets = append(m.Assets, collector.Asset{Symbol: sym, Tradable: true})
	}
	return m
}

func selector(cfg *config.Config, raw collector.BarStore) (*universe.Selector, error) {
	sel := &universe.Selector{Collector: collector.NewCollector(raw, cfg.Alpaca.Feed)}
	if m, ok := raw.(*collector.MockStore); ok {
		sel.Assets = m
		return sel, nil
	}
	if universe.Mode(cfg.Universe.Mode) == universe.ModeDynamic {
		client, err := tradingClient(cfg)
		if err != nil {
			return nil, err
		}
		sel.Assets = collector.NewAlpacaAssets(client)
	}
	return sel, nil
}

func gateway(cfg *config.Config) (broker.Gateway, error) {
	client, err := tradingClient(cfg)
	if err != nil {
		return nil, err
	}
	return broker.NewAlpacaBroker(client), nil
}

func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func telegram(cfg *config.Config) *notifier.TelegramNotifier {
	if !cfg.TelegramEnabled() {
		return nil
	}
	return notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
}
