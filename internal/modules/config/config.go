package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"hybrid_bot/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"

	EnvDemo = "demo"
	EnvLive = "live"
)

// Config ...
type Config struct {
	Service struct {
		Name     string `yaml:"name"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"` // 0: запоминаем последний чат из /start
	} `yaml:"telegram"`

	OKX OKXConfig `yaml:"okx"`

	Storage struct {
		Driver string `yaml:"driver"` // file | postgres | redis
		Path   string `yaml:"path"`
		Key    string `yaml:"key"` // ключ записи для postgres/redis
	} `yaml:"storage"`
	DB    string `yaml:"db_dsn"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`

	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`

	Bot struct {
		Watchlist    []string      `yaml:"watchlist"`
		Quote        string        `yaml:"quote"`
		JobInterval  time.Duration `yaml:"job_interval"`
		CandlesLimit int           `yaml:"candles_limit"`
		DailyPnLAt   string        `yaml:"daily_pnl_at"` // HH:MM
		DailyPnLTZ   string        `yaml:"daily_pnl_tz"`
		GridLegTTL   time.Duration `yaml:"grid_leg_ttl"` // 0: лестница ждёт сколько угодно
	} `yaml:"bot"`

	Strategy models.StrategyConfig `yaml:"strategy"`
	Risk     models.RiskConfig     `yaml:"risk"`
}

type OKXConfig struct {
	Env          string        `yaml:"env"` // demo | live
	BaseURL      string        `yaml:"base_url"`
	WSURL        string        `yaml:"ws_url"`
	TickerStream bool          `yaml:"ticker_stream"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Passphrase string `yaml:"passphrase"`
}

// Simulated: demo-окружение, нужен заголовок x-simulated-trading.
func (c OKXConfig) Simulated() bool { return c.Env != EnvLive }

func defaults() Config {
	var c Config
	c.Service.Name = "hybrid_bot"
	c.Service.LogLevel = "info"
	c.OKX = OKXConfig{
		Env:          EnvDemo,
		BaseURL:      "https://www.okx.com",
		WSURL:        "wss://ws.okx.com:8443/ws/v5/public",
		TickerStream: true,
		Timeout:      20 * time.Second,
		MaxRetries:   2,
		RetryBackoff: 500 * time.Millisecond,
	}
	c.Storage.Driver = "file"
	c.Storage.Path = "data/state.json"
	c.Storage.Key = "hybrid_bot:state"
	c.Redis.Addr = "localhost:6379"
	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831
	c.Health.Addr = ":8080"
	c.Bot.Watchlist = []string{"ETH-USDT", "BTC-USDT"}
	c.Bot.Quote = "USDT"
	c.Bot.JobInterval = 300 * time.Second
	c.Bot.CandlesLimit = 300
	c.Bot.DailyPnLAt = "21:00"
	c.Bot.DailyPnLTZ = "Europe/London"
	c.Strategy = models.DefaultStrategyConfig()
	c.Risk = models.DefaultRiskConfig()
	return c
}

func NewConfig() (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	config := defaults()

	dir := getenvDefault(configDirENV, "configs")
	configFileName := getenvDefault(configFilePathENV, "values_local.yaml")
	path := strings.TrimRight(dir, "/") + "/" + configFileName

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer func() {
			_ = file.Close()
		}()
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.Printf("[CONFIG] %s not found, using defaults + env", path)
	default:
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}

	applyEnv(&config, newEnv())

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// applyEnv: переменные окружения важнее файла.
func applyEnv(c *Config, v *viper.Viper) {
	c.Telegram.Token = stringFromEnv(v, "TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Telegram.ChatID = int64FromEnv(v, "TELEGRAM_CHAT_ID", c.Telegram.ChatID)
	c.Service.LogLevel = stringFromEnv(v, "LOG_LEVEL", c.Service.LogLevel)

	c.OKX.Env = strings.ToLower(stringFromEnv(v, "OKX_ENV", c.OKX.Env))
	if c.OKX.Env == EnvLive {
		c.OKX.APIKey = stringFromEnv(v, "OKX_API_KEY", c.OKX.APIKey)
		c.OKX.APISecret = stringFromEnv(v, "OKX_API_SECRET", c.OKX.APISecret)
		c.OKX.Passphrase = stringFromEnv(v, "OKX_API_PASSPHRASE", c.OKX.Passphrase)
	} else {
		c.OKX.APIKey = stringFromEnv(v, "OKX_DEMO_API_KEY", c.OKX.APIKey)
		c.OKX.APISecret = stringFromEnv(v, "OKX_DEMO_API_SECRET", c.OKX.APISecret)
		c.OKX.Passphrase = stringFromEnv(v, "OKX_DEMO_API_PASSPHRASE", c.OKX.Passphrase)
	}

	c.DB = stringFromEnv(v, "DATABASE_DSN", c.DB)
	c.Storage.Driver = stringFromEnv(v, "STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Path = stringFromEnv(v, "BOT_STORE_PATH", c.Storage.Path)
	c.Redis.Addr = stringFromEnv(v, "REDIS_ADDR", c.Redis.Addr)

	if wl := stringFromEnv(v, "WATCHLIST", ""); wl != "" {
		c.Bot.Watchlist = splitSymbols(wl)
	}
	c.Bot.Quote = strings.ToUpper(stringFromEnv(v, "BASE_QUOTE", c.Bot.Quote))
	c.Bot.JobInterval = durationFromEnv(v, "JOB_INTERVAL", c.Bot.JobInterval)
	if sec := intFromEnv(v, "JOB_INTERVAL_SEC", 0); sec > 0 {
		c.Bot.JobInterval = time.Duration(sec) * time.Second
	}

	c.Strategy.Timeframe = stringFromEnv(v, "TIMEFRAME", c.Strategy.Timeframe)
	if m, ok := models.ParseStrategyMode(stringFromEnv(v, "MODE", "")); ok {
		c.Strategy.Mode = m
	}
	c.Risk.RiskPerTrade = floatFromEnv(v, "RISK_PER_TRADE", c.Risk.RiskPerTrade)
	c.Tracing.Enabled = boolFromEnv(v, "TRACING_ENABLED", c.Tracing.Enabled)
}

func (c *Config) validate() error {
	if c.Bot.JobInterval <= 0 {
		return fmt.Errorf("bot.job_interval must be positive")
	}
	if c.Risk.RiskPerTrade < 0 || c.Risk.RiskPerTrade > 1 {
		return fmt.Errorf("risk.risk_per_trade out of range: %v", c.Risk.RiskPerTrade)
	}
	if _, ok := models.ParseStrategyMode(string(c.Strategy.Mode)); !ok {
		return fmt.Errorf("strategy.mode: unknown %q", c.Strategy.Mode)
	}
	switch c.Storage.Driver {
	case "file", "postgres", "redis":
	default:
		return fmt.Errorf("storage.driver: unknown %q", c.Storage.Driver)
	}
	return nil
}

// Runtime: стартовые рантайм-настройки бота.
func (c *Config) Runtime() models.RuntimeConfig {
	wl := make([]string, 0, len(c.Bot.Watchlist))
	for _, s := range c.Bot.Watchlist {
		if s = models.NormSymbol(s); s != "" {
			wl = append(wl, s)
		}
	}
	return models.RuntimeConfig{
		Strategy:  c.Strategy,
		Risk:      c.Risk,
		Watchlist: wl,
		Quote:     c.Bot.Quote,
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = models.NormSymbol(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func stringFromEnv(v *viper.Viper, key, def string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	return def
}

func intFromEnv(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return def
	}
	return v.GetInt(key)
}

func int64FromEnv(v *viper.Viper, key string, def int64) int64 {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return def
	}
	return v.GetInt64(key)
}

func floatFromEnv(v *viper.Viper, key string, def float64) float64 {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return def
	}
	return v.GetFloat64(key)
}

func boolFromEnv(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return def
	}
	return v.GetBool(key)
}

func durationFromEnv(v *viper.Viper, key string, def time.Duration) time.Duration {
	s := v.GetString(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
