package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"pumpradar/internal/infrastructure/config"
	"pumpradar/internal/infrastructure/logger"
	"pumpradar/internal/infrastructure/svc"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Setup("info")
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service init failed")
	}
	defer sc.Close()

	log.Info().
		Str("config", *configPath).
		Int("symbols", len(sc.Monitor().Symbols())).
		Int("group_size", cfg.Feed.GroupSize).
		Bool("telegram", cfg.Notify.Telegram.Enabled).
		Msg("pumpradar started")

	if err := sc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("monitor service exited")
	}
	log.Info().Msg("pumpradar stopped")
}
