package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"pumpradar/internal/infrastructure/exchange"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		LogLevel string `toml:"log_level"`
		EnvFile  string `toml:"env_file"`
	} `toml:"app"`

	Symbols struct {
		List     []string `toml:"list"` // 为空时自动发现
		Quote    string   `toml:"quote"`
		MinPrice float64  `toml:"min_price"`
		MaxPrice float64  `toml:"max_price"`
	} `toml:"symbols"`

	Feed struct {
		WsURL          string `toml:"ws_url"`
		GroupSize      int    `toml:"group_size"`
		StaggerMs      int    `toml:"stagger_ms"`
		ReconnectSec   int    `toml:"reconnect_sec"`
		ReadTimeoutSec int    `toml:"read_timeout_sec"`
	} `toml:"feed"`

	Rest struct {
		BaseURL    string  `toml:"base_url"`
		RatePerSec float64 `toml:"rate_per_sec"`
		Burst      int     `toml:"burst"`
	} `toml:"rest"`

	Funding struct {
		TTLSec      int `toml:"ttl_sec"`
		IntervalSec int `toml:"interval_sec"`
		TimeoutMs   int `toml:"timeout_ms"`
		BatchSize   int `toml:"batch_size"`
	} `toml:"funding"`

	Detect struct {
		Workers            int `toml:"workers"`
		DispatchIntervalMs int `toml:"dispatch_interval_ms"`
		BufferCapacity     int `toml:"buffer_capacity"`
		PerfEverySec       int `toml:"perf_every_sec"`
		HeartbeatSec       int `toml:"heartbeat_sec"`
	} `toml:"detect"`

	Notify struct {
		Console    bool `toml:"console"`
		Buffer     int  `toml:"buffer"`
		TimeoutSec int  `toml:"timeout_sec"`

		Telegram struct {
			Enabled    bool    `toml:"enabled"`
			Token      string  `toml:"token"`
			APIURL     string  `toml:"api_url"`
			ChatIDs    []int64 `toml:"chat_ids"`
			ChatsFile  string  `toml:"chats_file"`
			Poll       bool    `toml:"poll"`
			RatePerSec float64 `toml:"rate_per_sec"`
		} `toml:"telegram"`
	} `toml:"notify"`

	Stream struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"stream"`

	Storage struct {
		Enabled bool `toml:"enabled"`

		Redis struct {
			Enabled      bool   `toml:"enabled"`
			Addr         string `toml:"addr"`
			Password     string `toml:"password"`
			DB           int    `toml:"db"`
			Prefix       string `toml:"prefix"`
			TTLSeconds   int    `toml:"ttl_seconds"`
			EventStream  string `toml:"event_stream"`
			EventChannel string `toml:"event_channel"`
		} `toml:"redis"`

		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := loadEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnv 读取 .env，密钥类配置以环境变量为准
func loadEnv(cfg *Config) error {
	envFile := strings.TrimSpace(cfg.App.EnvFile)
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	if v := firstEnv("TELEGRAM_TOKEN", "TOKEN"); v != "" {
		cfg.Notify.Telegram.Token = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}

	if cfg.Symbols.Quote == "" {
		cfg.Symbols.Quote = "USDT"
	}
	if cfg.Symbols.MinPrice <= 0 {
		cfg.Symbols.MinPrice = 0.0001
	}
	if cfg.Symbols.MaxPrice <= 0 {
		cfg.Symbols.MaxPrice = 1.0
	}

	if cfg.Feed.WsURL == "" {
		cfg.Feed.WsURL = "wss://open-api-swap.bingx.com/swap-market"
	}
	if cfg.Feed.GroupSize <= 0 {
		cfg.Feed.GroupSize = 50
	}
	if cfg.Feed.StaggerMs <= 0 {
		cfg.Feed.StaggerMs = 200
	}
	if cfg.Feed.ReconnectSec <= 0 {
		cfg.Feed.ReconnectSec = 5
	}
	if cfg.Feed.ReadTimeoutSec <= 0 {
		cfg.Feed.ReadTimeoutSec = 60
	}

	if cfg.Rest.BaseURL == "" {
		cfg.Rest.BaseURL = "https://open-api.bingx.com"
	}
	if cfg.Rest.RatePerSec <= 0 {
		cfg.Rest.RatePerSec = 10
	}
	if cfg.Rest.Burst <= 0 {
		cfg.Rest.Burst = 10
	}

	if cfg.Funding.TTLSec <= 0 {
		cfg.Funding.TTLSec = 60
	}
	if cfg.Funding.IntervalSec <= 0 {
		cfg.Funding.IntervalSec = 30
	}
	if cfg.Funding.TimeoutMs <= 0 {
		cfg.Funding.TimeoutMs = 2000
	}
	if cfg.Funding.BatchSize <= 0 {
		cfg.Funding.BatchSize = 10
	}

	if cfg.Detect.Workers <= 0 {
		cfg.Detect.Workers = 3
	}
	if cfg.Detect.DispatchIntervalMs <= 0 {
		cfg.Detect.DispatchIntervalMs = 500
	}
	if cfg.Detect.BufferCapacity <= 0 {
		cfg.Detect.BufferCapacity = 240
	}
	if cfg.Detect.PerfEverySec <= 0 {
		cfg.Detect.PerfEverySec = 10
	}
	if cfg.Detect.HeartbeatSec <= 0 {
		cfg.Detect.HeartbeatSec = 60
	}

	if cfg.Notify.Buffer <= 0 {
		cfg.Notify.Buffer = 256
	}
	if cfg.Notify.TimeoutSec <= 0 {
		cfg.Notify.TimeoutSec = 10
	}
	if cfg.Notify.Telegram.APIURL == "" {
		cfg.Notify.Telegram.APIURL = "https://api.telegram.org"
	}
	if cfg.Notify.Telegram.ChatsFile == "" {
		cfg.Notify.Telegram.ChatsFile = "notify_chats.json"
	}
	if cfg.Notify.Telegram.RatePerSec <= 0 {
		cfg.Notify.Telegram.RatePerSec = 20
	}

	if cfg.Stream.Addr == "" {
		cfg.Stream.Addr = ":8090"
	}

	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "pumpradar"
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/pumpradar.db"
	}
}

func validate(cfg *Config) error {
	cfg.Symbols.List = normalizeSymbols(cfg.Symbols.List, cfg.Symbols.Quote)

	if cfg.Symbols.MinPrice > cfg.Symbols.MaxPrice {
		return errors.New("symbols.min_price greater than symbols.max_price")
	}
	if cfg.Feed.GroupSize > 50 {
		return fmt.Errorf("feed.group_size %d exceeds 50", cfg.Feed.GroupSize)
	}
	if cfg.Notify.Telegram.Enabled && strings.TrimSpace(cfg.Notify.Telegram.Token) == "" {
		return errors.New("notify.telegram.token empty but enabled (set TOKEN in .env)")
	}
	if cfg.Storage.Enabled && cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	return nil
}

func normalizeSymbols(in []string, quote string) []string {
	conv := exchange.NewDashSymbolConverter(quote)
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := conv.Coin2Symbol(s)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (c *Config) StaggerDelay() time.Duration {
	return time.Duration(c.Feed.StaggerMs) * time.Millisecond
}

func (c *Config) DispatchInterval() time.Duration {
	return time.Duration(c.Detect.DispatchIntervalMs) * time.Millisecond
}
