package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/walletauth/pkg/config"
	"github.com/DeBrosOfficial/walletauth/pkg/gateway"
	"github.com/DeBrosOfficial/walletauth/pkg/logging"
)

func setupLogger(cfg config.LoggingConfig) (*logging.ColoredLogger, error) {
	level := logging.ParseLevel(cfg.Level)
	if cfg.Format == "json" {
		return logging.NewJSONLogger(level)
	}
	return logging.NewColoredLogger(cfg.Colors, level)
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, path, err := loadConfig(os.Args[1:], os.LookupEnv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		return 2
	}

	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.ComponentInfo(logging.ComponentGeneral, "Loaded gateway configuration",
		zap.String("config_path", path),
		zap.String("environment", cfg.Environment),
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("https", cfg.HTTPS.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDependencies(ctx, logger, cfg)
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to initialize dependencies", zap.Error(err))
		return 1
	}

	g, err := gateway.New(logger, &gateway.Config{
		ListenAddr:     cfg.ListenAddr,
		RateLimit:      cfg.RateLimit,
		HTTPS:          cfg.HTTPS,
		TrustedProxies: cfg.TrustedProxies,
		PurgeInterval:  cfg.Database.PurgeInterval,
		PurgeAfter:     cfg.Database.PurgeAfter,
	}, deps.gateway)
	if err != nil {
		deps.closeAll()
		logger.ComponentError(logging.ComponentGeneral, "failed to initialize gateway", zap.Error(err))
		return 1
	}
	defer g.Close()

	if err := g.Start(ctx); err != nil {
		logger.ComponentError(logging.ComponentGeneral, "gateway stopped with error", zap.Error(err))
		return 1
	}
	return 0
}
