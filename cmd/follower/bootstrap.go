package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"trade-mirror/internal/broker/kite"
	"trade-mirror/internal/broker/sim"
	"trade-mirror/internal/follower"
	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/logger"
	"trade-mirror/internal/storage"
	"trade-mirror/internal/store"
	"trade-mirror/internal/tradelog"
	"trade-mirror/internal/xueqiu"
)

// dependencies bundles everything the follower needs at runtime.
type dependencies struct {
	Follower *follower.Follower
	store    *storage.Store
}

func (d *dependencies) Close() {
	if d.store != nil {
		_ = d.store.Close()
	}
}

// initializeSystem loads env vars, the logger and trade-log retention.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if v := os.Getenv("MIRROR_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		_ = tradelog.CompressOlder(n)
	}

	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("MIRROR_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// buildDependencies constructs the portfolio-site client, trading accounts and
// the audit store, and wires them into a Follower.
func buildDependencies(ctx context.Context, cfg *store.Config) (*dependencies, error) {
	client := xueqiu.New(xueqiu.Config{
		Cookie:   os.Getenv(cfg.Xueqiu.CookieEnv),
		Timeout:  time.Duration(cfg.Xueqiu.TimeoutSeconds) * time.Second,
		PageSize: cfg.Xueqiu.PageSize,
	})

	accounts, positions, err := buildAccounts(cfg)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening audit store %s: %w", cfg.DatabasePath, err)
	}

	logger.Info(ctx, "Dependencies ready",
		"accounts", len(accounts),
		"database", cfg.DatabasePath,
		"strategies", len(cfg.Strategies),
	)

	return &dependencies{
		Follower: &follower.Follower{
			History:   client,
			NetValues: client,
			Names:     client,
			Accounts:  accounts,
			Positions: positions,
			Storage:   db,
			Commands:  db,
		},
		store: db,
	}, nil
}

// buildAccounts creates one trading account per config entry. DRY_RUN mode
// forces simulated accounts regardless of the configured broker. The first
// account also serves as the position lookup for sell clamping.
func buildAccounts(cfg *store.Config) ([]interfaces.TradeAccount, interfaces.PositionLookup, error) {
	accounts := make([]interfaces.TradeAccount, 0, len(cfg.Accounts))
	var positions interfaces.PositionLookup

	for _, ac := range cfg.Accounts {
		var (
			account interfaces.TradeAccount
			lookup  interfaces.PositionLookup
		)
		if cfg.Mode == "DRY_RUN" || ac.Broker == "SIM" {
			s := sim.New(ac.ID, nil)
			account, lookup = s, s
		} else {
			k, err := kite.New(kite.Params{
				AccountID:   ac.ID,
				APIKey:      os.Getenv("KITE_API_KEY"),
				AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
				Exchange:    ac.Exchange,
				Product:     ac.Product,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("account %s: %w", ac.ID, err)
			}
			account, lookup = k, k
		}

		accounts = append(accounts, account)
		if positions == nil {
			positions = lookup
		}
	}

	return accounts, positions, nil
}

func followRequest(cfg *store.Config) follower.FollowRequest {
	return follower.FollowRequest{
		Strategies:     cfg.Strategies,
		TotalAssets:    cfg.TotalAssets,
		InitialAssets:  cfg.InitialAssets,
		AdjustSell:     cfg.AdjustSell,
		TrackInterval:  time.Duration(cfg.TrackIntervalSeconds) * time.Second,
		TradeCmdExpire: time.Duration(cfg.TradeCmdExpireSeconds) * time.Second,
		CmdCache:       cfg.CmdCache,
		Slippage:       cfg.Slippage,
	}
}
