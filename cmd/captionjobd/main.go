package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"captionjob/internal/config"
	"captionjob/internal/daemon"
	"captionjob/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg, "captionjobd")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := daemon.Run(ctx, cfg, logger); err != nil {
		logger.Error("captionjobd exited", logging.Error(err))
		cancel()
		log.Fatalf("captionjobd: %v", err)
	}
}
