package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"usedplus-economy/internal/config"
	"usedplus-economy/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	setupLogger(cfg)

	app, stack, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}
	defer stack.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The loop outlives the signal so the shutdown save can still run on it.
	runCtx, stopRun := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- stack.Session.Run(runCtx) }()

	if cfg.Authoritative() {
		loaded, err := stack.Session.Load(ctx)
		if err != nil {
			log.Fatal().Err(err).Str("slot", cfg.SaveSlot).Msg("save load")
		}
		log.Info().Bool("restored", loaded).Str("slot", cfg.SaveSlot).Msg("Save slot checked")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("role", cfg.Role).Msgf("Server running at http://localhost:%s", cfg.Port)
		log.Info().Msgf("Health check: http://localhost:%s/health/json", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("listen")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	if cfg.Authoritative() {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if res, err := stack.Session.Save(saveCtx); err != nil {
			log.Error().Err(err).Msg("save on shutdown")
		} else {
			log.Info().Interface("save", res).Msg("Saved")
		}
		cancel()
	}
	stopRun()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("session run")
	}
}
