package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type AccountConfig struct {
	ID       string `yaml:"id"`
	Broker   string `yaml:"broker"` // SIM or KITE
	Exchange string `yaml:"exchange"`
	Product  string `yaml:"product"`
}

type XueqiuConfig struct {
	CookieEnv      string `yaml:"cookie_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PageSize       int    `yaml:"page_size"`
}

type Config struct {
	Mode       string   `yaml:"mode"`
	Strategies []string `yaml:"strategies"`

	// Parallel to Strategies; a single value broadcasts to every strategy,
	// an empty list means unset for all of them.
	TotalAssets   []float64 `yaml:"total_assets"`
	InitialAssets []float64 `yaml:"initial_assets"`

	AdjustSell            bool    `yaml:"adjust_sell"`
	TrackIntervalSeconds  int     `yaml:"track_interval_seconds"`
	TradeCmdExpireSeconds int     `yaml:"trade_cmd_expire_seconds"`
	CmdCache              bool    `yaml:"cmd_cache"`
	Slippage              float64 `yaml:"slippage"`

	DatabasePath string          `yaml:"database_path"`
	Accounts     []AccountConfig `yaml:"accounts"`
	Xueqiu       XueqiuConfig    `yaml:"xueqiu"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Strategies) == 0 {
		return errors.New("strategies cannot be empty")
	}
	if len(c.Accounts) == 0 {
		return errors.New("accounts cannot be empty")
	}
	for _, a := range c.Accounts {
		if a.Broker != "SIM" && a.Broker != "KITE" {
			return fmt.Errorf("account %s: broker must be 'SIM' or 'KITE', got '%s'", a.ID, a.Broker)
		}
	}
	if c.TrackIntervalSeconds <= 0 {
		return fmt.Errorf("track_interval_seconds must be positive, got %d", c.TrackIntervalSeconds)
	}
	if c.TradeCmdExpireSeconds <= 0 {
		return fmt.Errorf("trade_cmd_expire_seconds must be positive, got %d", c.TradeCmdExpireSeconds)
	}
	if c.Slippage < 0 || c.Slippage >= 1 {
		return fmt.Errorf("slippage must be in [0, 1), got %.4f", c.Slippage)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.TrackIntervalSeconds == 0 {
		c.TrackIntervalSeconds = 10
	}
	if c.TradeCmdExpireSeconds == 0 {
		c.TradeCmdExpireSeconds = 120
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "follower.db"
	}
	if c.Xueqiu.TimeoutSeconds == 0 {
		c.Xueqiu.TimeoutSeconds = 15
	}
	if c.Xueqiu.PageSize == 0 {
		c.Xueqiu.PageSize = 20
	}
	if c.Xueqiu.CookieEnv == "" {
		c.Xueqiu.CookieEnv = "XQ_COOKIE"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
