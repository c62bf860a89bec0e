package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/humanbelnik/boardmate/internal/app"
	"github.com/humanbelnik/boardmate/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	if err := app.Go(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("service stopped")
	}
	log.Info().Msg("service exited gracefully")
}
