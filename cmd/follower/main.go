package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"trade-mirror/internal/follower"
	"trade-mirror/internal/logger"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	must(err)

	if cfg.Mode == "DRY_RUN" {
		log.Println(">> DRY_RUN mode")
	}

	deps, err := buildDependencies(ctx, cfg)
	must(err)
	defer deps.Close()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		log.Println("Shutting down...")
		cancel()
	}()

	log.Println("Follower started.")
	if err := deps.Follower.Follow(ctx, followRequest(cfg)); err != nil {
		var cfgErr *follower.ConfigError
		if errors.As(err, &cfgErr) {
			log.Fatalf("invalid follow configuration: %v", err)
		}
		must(err)
	}

	_ = logger.Shutdown(context.Background())
}
