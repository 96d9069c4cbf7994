package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"GreenLine/internal/alpaca"
	"GreenLine/internal/calculator"
	"GreenLine/internal/paper"
	"GreenLine/internal/portfolio"
	"GreenLine/internal/strategy"
	"GreenLine/internal/universe"
)

// Mode selects which settings Validate requires.
type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModePaper    Mode = "paper"
	ModeServe    Mode = "serve"
)

// Config holds all application configuration.
type Config struct {
	Alpaca struct {
		APIKey     string  `yaml:"api_key"`
		APISecret  string  `yaml:"api_secret"`
		TradingURL string  `yaml:"trading_url"`
		DataURL    string  `yaml:"data_url"`
		Feed       string  `yaml:"feed"`
		RateLimit  float64 `yaml:"rate_limit"` // data requests per second
		Burst      int     `yaml:"burst"`
	} `yaml:"alpaca"`
	Data struct {
		Source   string `yaml:"source"` // alpaca, yahoo or mock
		CacheDir string `yaml:"cache_dir"`
	} `yaml:"data"`
	Universe struct {
		Mode           string   `yaml:"mode"`
		MaxSymbols     int      `yaml:"max_symbols"`
		Symbols        []string `yaml:"symbols"`
		CandidateLimit int      `yaml:"candidate_limit"`
		LookbackDays   int      `yaml:"lookback_days"`
	} `yaml:"universe"`
	Strategy struct {
		GreenLinePeriod int       `yaml:"green_line_period"`
		StochK          int       `yaml:"stoch_k"`
		StochD          int       `yaml:"stoch_d"`
		Oversold        float64   `yaml:"oversold"`
		Overbought      float64   `yaml:"overbought"`
		Percentile      float64   `yaml:"percentile"`
		MomentumPeriods []int     `yaml:"momentum_periods"`
		MomentumWeights []float64 `yaml:"momentum_weights"`
	} `yaml:"strategy"`
	Backtest struct {
		Years          int     `yaml:"years"`
		WarmupDays     int     `yaml:"warmup_days"`
		InitialCapital float64 `yaml:"initial_capital"`
		Slippage       float64 `yaml:"slippage"`
		TradeLog       string  `yaml:"trade_log"`
		EquityCurve    string  `yaml:"equity_curve"`
		ReportFile     string  `yaml:"report_file"`
	} `yaml:"backtest"`
	Paper struct {
		LookbackDays     int     `yaml:"lookback_days"`
		MinPrice         float64 `yaml:"min_price"`
		Live             bool    `yaml:"live"`
		PauseFile        string  `yaml:"pause_file"`
		CancelOpenOrders bool    `yaml:"cancel_open_orders"`
		ReportFile       string  `yaml:"report_file"`
	} `yaml:"paper"`
	Schedule struct {
		PaperCron string `yaml:"paper_cron"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then .env, then environment variable overrides,
// and finally fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"ALPACA_API_KEY":     &c.Alpaca.APIKey,
		"ALPACA_API_SECRET":  &c.Alpaca.APISecret,
		"ALPACA_TRADING_URL": &c.Alpaca.TradingURL,
		"ALPACA_DATA_URL":    &c.Alpaca.DataURL,
		"ALPACA_DATA_FEED":   &c.Alpaca.Feed,
		"DATA_SOURCE":        &c.Data.Source,
		"UNIVERSE_MODE":      &c.Universe.Mode,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"LOG_LEVEL":          &c.Log.Level,
		"HTTPS_PROXY":        &c.Proxy,
		"CRON_PAPER":         &c.Schedule.PaperCron,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("MAX_SYMBOLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_SYMBOLS: %w", err)
		}
		c.Universe.MaxSymbols = n
	}
	if v := os.Getenv("PAPER_LIVE"); v != "" {
		live, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PAPER_LIVE: %w", err)
		}
		c.Paper.Live = live
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Alpaca.TradingURL == "" {
		c.Alpaca.TradingURL = alpaca.DefaultTradingURL
	}
	if c.Alpaca.DataURL == "" {
		c.Alpaca.DataURL = alpaca.DefaultDataURL
	}
	if c.Alpaca.Feed == "" {
		c.Alpaca.Feed = alpaca.DefaultFeed
	}
	if c.Alpaca.RateLimit == 0 {
		c.Alpaca.RateLimit = 3
	}
	if c.Alpaca.Burst == 0 {
		c.Alpaca.Burst = 3
	}
	if c.Data.Source == "" {
		c.Data.Source = "alpaca"
	}
	if c.Data.CacheDir == "" {
		c.Data.CacheDir = "data/cache"
	}
	if c.Universe.Mode == "" {
		c.Universe.Mode = string(universe.ModeStatic)
	}
	if c.Universe.MaxSymbols == 0 {
		c.Universe.MaxSymbols = universe.DefaultMaxSymbols
	}
	if c.Universe.CandidateLimit == 0 {
		c.Universe.CandidateLimit = universe.DefaultCandidateLimit
	}
	if c.Universe.LookbackDays == 0 {
		c.Universe.LookbackDays = universe.DefaultLookbackDays
	}
	if c.Strategy.GreenLinePeriod == 0 {
		c.Strategy.GreenLinePeriod = calculator.DefaultGreenLinePeriod
	}
	if c.Strategy.StochK == 0 {
		c.Strategy.StochK = calculator.DefaultStochK
	}
	if c.Strategy.StochD == 0 {
		c.Strategy.StochD = calculator.DefaultStochD
	}
	if c.Strategy.Oversold == 0 {
		c.Strategy.Oversold = strategy.DefaultOversold
	}
	if c.Strategy.Overbought == 0 {
		c.Strategy.Overbought = strategy.DefaultOverbought
	}
	if c.Strategy.Percentile == 0 {
		c.Strategy.Percentile = strategy.DefaultPercentileThreshold
	}
	if len(c.Strategy.MomentumPeriods) == 0 {
		blend := calculator.DefaultBlend()
		c.Strategy.MomentumPeriods = blend.Periods
		if len(c.Strategy.MomentumWeights) == 0 {
			c.Strategy.MomentumWeights = blend.Weights
		}
	}
	if c.Backtest.Years == 0 {
		c.Backtest.Years = 3
	}
	if c.Backtest.WarmupDays == 0 {
		c.Backtest.WarmupDays = 400
	}
	if c.Backtest.InitialCapital == 0 {
		c.Backtest.InitialCapital = 100000
	}
	if c.Backtest.Slippage == 0 {
		c.Backtest.Slippage = portfolio.DefaultSlippage
	}
	if c.Backtest.TradeLog == "" {
		c.Backtest.TradeLog = "data/trade_log.csv"
	}
	if c.Backtest.EquityCurve == "" {
		c.Backtest.EquityCurve = "data/equity_curve.csv"
	}
	if c.Backtest.ReportFile == "" {
		c.Backtest.ReportFile = "data/backtest_report.json"
	}
	if c.Paper.LookbackDays == 0 {
		c.Paper.LookbackDays = paper.DefaultLookbackDays
	}
	if c.Paper.MinPrice == 0 {
		c.Paper.MinPrice = paper.DefaultMinPrice
	}
	if c.Paper.PauseFile == "" {
		c.Paper.PauseFile = "data/paused"
	}
	if c.Paper.ReportFile == "" {
		c.Paper.ReportFile = "data/paper_summary.txt"
	}
	if c.Schedule.PaperCron == "" {
		// 16:15 New York time, after the close
		c.Schedule.PaperCron = "0 15 16 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/greenline.db"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the fields required by mode are set and sane.
func (c *Config) Validate(mode Mode) error {
	switch c.Data.Source {
	case "alpaca", "yahoo", "mock":
	default:
		return fmt.Errorf("data.source must be alpaca, yahoo or mock, got %q", c.Data.Source)
	}
	switch universe.Mode(c.Universe.Mode) {
	case universe.ModeStatic, universe.ModeDynamic:
	default:
		return fmt.Errorf("universe.mode must be static or dynamic, got %q", c.Universe.Mode)
	}
	if c.Universe.MaxSymbols < 0 {
		return errors.New("universe.max_symbols must not be negative")
	}
	if c.Strategy.Percentile <= 0 || c.Strategy.Percentile > 100 {
		return errors.New("strategy.percentile must be in (0, 100]")
	}
	if c.Strategy.Oversold >= c.Strategy.Overbought {
		return errors.New("strategy.oversold must be below strategy.overbought")
	}
	if err := c.StrategyParams().Indicators.Momentum.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	needAlpaca := c.Data.Source == "alpaca" ||
		(c.Data.Source != "mock" && universe.Mode(c.Universe.Mode) == universe.ModeDynamic)
	switch mode {
	case ModeBacktest:
		if c.Backtest.Years <= 0 {
			return errors.New("backtest.years must be positive")
		}
		if c.Backtest.InitialCapital <= 0 {
			return errors.New("backtest.initial_capital must be positive")
		}
		if c.Backtest.Slippage < 0 || c.Backtest.Slippage >= 1 {
			return errors.New("backtest.slippage must be in [0, 1)")
		}
	case ModePaper, ModeServe:
		needAlpaca = true
		if c.Paper.MinPrice < 0 {
			return errors.New("paper.min_price must not be negative")
		}
		if mode == ModeServe && strings.TrimSpace(c.Schedule.PaperCron) == "" {
			return errors.New("schedule.paper_cron is required")
		}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	if needAlpaca && (c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "") {
		return errors.New("alpaca.api_key and alpaca.api_secret are required (ALPACA_API_KEY / ALPACA_API_SECRET)")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether summaries should be sent to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// StrategyParams converts the strategy section into engine parameters.
func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		Indicators: calculator.Params{
			GreenLinePeriod: c.Strategy.GreenLinePeriod,
			Momentum: calculator.MomentumBlend{
				Periods: c.Strategy.MomentumPeriods,
				Weights: c.Strategy.MomentumWeights,
			},
			StochK: c.Strategy.StochK,
			StochD: c.Strategy.StochD,
		},
		Thresholds: strategy.Thresholds{
			Oversold:   c.Strategy.Oversold,
			Overbought: c.Strategy.Overbought,
			Percentile: c.Strategy.Percentile,
		},
	}
}

// UniverseParams converts the universe section.
func (c *Config) UniverseParams() universe.Params {
	return universe.Params{
		Mode:           universe.Mode(c.Universe.Mode),
		MaxSymbols:     c.Universe.MaxSymbols,
		Static:         c.Universe.Symbols,
		CandidateLimit: c.Universe.CandidateLimit,
		LookbackDays:   c.Universe.LookbackDays,
	}
}

// PaperParams converts the paper section.
func (c *Config) PaperParams() paper.Params {
	return paper.Params{
		Universe:         c.UniverseParams(),
		Strategy:         c.StrategyParams(),
		LookbackDays:     c.Paper.LookbackDays,
		MinPrice:         c.Paper.MinPrice,
		Live:             c.Paper.Live,
		PauseFile:        c.Paper.PauseFile,
		CancelOpenOrders: c.Paper.CancelOpenOrders,
	}
}
