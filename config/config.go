package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/sentinel/exits"
	"github.com/rustyeddy/sentinel/market"
	"github.com/rustyeddy/sentinel/risk"
	"github.com/rustyeddy/sentinel/signal"
	"gopkg.in/yaml.v3"
)

// Config is the complete operator configuration.
type Config struct {
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Trading  TradingConfig  `json:"trading" yaml:"trading"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
	Feed     FeedConfig     `json:"feed" yaml:"feed"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	API      APIConfig      `json:"api" yaml:"api"`
}

// StrategyConfig selects the entry policy and tunes the debounce.
type StrategyConfig struct {
	Mode             string   `json:"mode" yaml:"mode"` // Sentinel or Sniper
	ConfirmWindow    Duration `json:"confirm_window" yaml:"confirm_window"`
	LateCutoff       string   `json:"late_cutoff" yaml:"late_cutoff"` // HH:MM IST
	BreakoutBuffer   float64  `json:"breakout_buffer" yaml:"breakout_buffer"`
	SqueezeThreshold float64  `json:"squeeze_threshold" yaml:"squeeze_threshold"`
	SpikeRatio       float64  `json:"spike_ratio" yaml:"spike_ratio"`
	RSIMin           float64  `json:"rsi_min" yaml:"rsi_min"`
}

// TradingConfig holds the Auto-Bot switches and risk settings. Percentages
// are in percent.
type TradingConfig struct {
	AutoBuy             bool    `json:"auto_buy" yaml:"auto_buy"`
	AutoSell            bool    `json:"auto_sell" yaml:"auto_sell"`
	RiskPercent         float64 `json:"risk_percent" yaml:"risk_percent"`
	TrailPercent        float64 `json:"trail_percent" yaml:"trail_percent"`
	BreakevenPercent    float64 `json:"breakeven_percent" yaml:"breakeven_percent"`
	TrailTriggerPercent float64 `json:"trail_trigger_percent" yaml:"trail_trigger_percent"`
	Capital             float64 `json:"capital" yaml:"capital"`
	MaxOpenPositions    int     `json:"max_open_positions" yaml:"max_open_positions"`
	MaxDailyLossPercent float64 `json:"max_daily_loss_percent" yaml:"max_daily_loss_percent"`
}

// ScheduleConfig is the cycle cadence inside and outside the session.
type ScheduleConfig struct {
	OpenInterval   Duration `json:"open_interval" yaml:"open_interval"`
	ClosedInterval Duration `json:"closed_interval" yaml:"closed_interval"`
}

type FeedConfig struct {
	BaseURL           string   `json:"base_url" yaml:"base_url"`
	Timeout           Duration `json:"timeout" yaml:"timeout"`
	CacheTTL          Duration `json:"cache_ttl" yaml:"cache_ttl"`
	RequestsPerSecond float64  `json:"requests_per_second" yaml:"requests_per_second"`
	Concurrency       int      `json:"concurrency" yaml:"concurrency"`
	RedisAddr         string   `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword     string   `json:"-" yaml:"-"`
	RedisDB           int      `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
}

type StoreConfig struct {
	Type          string   `json:"type" yaml:"type"` // csv, sqlite, postgres or memory
	Dir           string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	DSN           string   `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	RetryAttempts int      `json:"retry_attempts" yaml:"retry_attempts"`
	RetryBackoff  Duration `json:"retry_backoff" yaml:"retry_backoff"`
}

type APIConfig struct {
	Listen string `json:"listen" yaml:"listen"`
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("SENTINEL_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := getenv("SENTINEL_REDIS_ADDR"); v != "" {
		c.Feed.RedisAddr = v
	}
	if v := getenv("SENTINEL_REDIS_PASSWORD"); v != "" {
		c.Feed.RedisPassword = v
	}
	if v := getenv("SENTINEL_FEED_URL"); v != "" {
		c.Feed.BaseURL = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := signal.PolicyByName(c.Strategy.Mode, signal.DefaultParams()); err != nil {
		return fmt.Errorf("strategy.mode: %w", err)
	}
	if c.Strategy.ConfirmWindow <= 0 {
		return fmt.Errorf("strategy.confirm_window must be positive")
	}
	if _, err := market.ParseClock(c.Strategy.LateCutoff); err != nil {
		return fmt.Errorf("strategy.late_cutoff must be HH:MM: %w", err)
	}
	if c.Strategy.BreakoutBuffer < 0 {
		return fmt.Errorf("strategy.breakout_buffer must not be negative")
	}
	if c.Trading.RiskPercent <= 0 || c.Trading.RiskPercent >= 100 {
		return fmt.Errorf("trading.risk_percent must be between 0 and 100")
	}
	if err := c.ExitRules().Validate(); err != nil {
		return fmt.Errorf("trading: %w", err)
	}
	if c.Trading.Capital <= 0 {
		return fmt.Errorf("trading.capital must be positive")
	}
	if c.Schedule.OpenInterval <= 0 || c.Schedule.ClosedInterval <= 0 {
		return fmt.Errorf("schedule intervals must be positive")
	}
	if c.Feed.Concurrency < 0 || c.Feed.RequestsPerSecond < 0 {
		return fmt.Errorf("feed concurrency and requests_per_second must not be negative")
	}
	switch c.Store.Type {
	case "csv":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir required for csv type")
		}
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn required for %s type", c.Store.Type)
		}
	case "memory":
	default:
		return fmt.Errorf("store.type must be one of csv, sqlite, postgres, memory")
	}
	if c.Store.RetryAttempts < 1 {
		return fmt.Errorf("store.retry_attempts must be at least 1")
	}
	return nil
}

// SignalParams merges the strategy section into the policy defaults.
func (c *Config) SignalParams() signal.Params {
	p := signal.DefaultParams()
	p.ConfirmWindow = time.Duration(c.Strategy.ConfirmWindow)
	if cutoff, err := market.ParseClock(c.Strategy.LateCutoff); err == nil {
		p.VolumeCutoff = cutoff
	}
	p.BreakoutBuffer = c.Strategy.BreakoutBuffer
	if c.Strategy.SqueezeThreshold > 0 {
		p.SqueezeThreshold = c.Strategy.SqueezeThreshold
	}
	if c.Strategy.SpikeRatio > 0 {
		p.SpikeRatio = c.Strategy.SpikeRatio
	}
	if c.Strategy.RSIMin > 0 {
		p.RSIMin = c.Strategy.RSIMin
	}
	return p
}

func (c *Config) RiskPolicy() risk.Policy {
	return risk.Policy{
		Capital:          c.Trading.Capital,
		RiskPct:          c.Trading.RiskPercent,
		MaxOpenPositions: c.Trading.MaxOpenPositions,
		MaxDailyLossPct:  c.Trading.MaxDailyLossPercent,
	}
}

func (c *Config) ExitRules() exits.Rules {
	return exits.Rules{
		BreakevenPct:    c.Trading.BreakevenPercent,
		TrailTriggerPct: c.Trading.TrailTriggerPercent,
		TrailPct:        c.Trading.TrailPercent,
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	p := signal.DefaultParams()
	rules := exits.DefaultRules()
	pol := risk.DefaultPolicy()
	return &Config{
		Strategy: StrategyConfig{
			Mode:             "Sentinel",
			ConfirmWindow:    Duration(p.ConfirmWindow),
			LateCutoff:       "15:00",
			BreakoutBuffer:   p.BreakoutBuffer,
			SqueezeThreshold: p.SqueezeThreshold,
			SpikeRatio:       p.SpikeRatio,
			RSIMin:           p.RSIMin,
		},
		Trading: TradingConfig{
			AutoBuy:             false,
			AutoSell:            true,
			RiskPercent:         pol.RiskPct,
			TrailPercent:        rules.TrailPct,
			BreakevenPercent:    rules.BreakevenPct,
			TrailTriggerPercent: rules.TrailTriggerPct,
			Capital:             pol.Capital,
			MaxOpenPositions:    pol.MaxOpenPositions,
			MaxDailyLossPercent: pol.MaxDailyLossPct,
		},
		Schedule: ScheduleConfig{
			OpenInterval:   Duration(30 * time.Second),
			ClosedInterval: Duration(5 * time.Minute),
		},
		Feed: FeedConfig{
			BaseURL:           "https://query1.finance.yahoo.com",
			Timeout:           Duration(10 * time.Second),
			CacheTTL:          Duration(30 * time.Second),
			RequestsPerSecond: 5,
			Concurrency:       4,
		},
		Store: StoreConfig{
			Type:          "csv",
			Dir:           "./data",
			RetryAttempts: 3,
			RetryBackoff:  Duration(200 * time.Millisecond),
		},
		API: APIConfig{
			Listen: "127.0.0.1:8080",
		},
	}
}
