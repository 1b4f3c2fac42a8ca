package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/api"
	"vision-runtime-go/internal/config"
	"vision-runtime-go/internal/logging"
	"vision-runtime-go/internal/runtime"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg)

	log.Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("settings_file", cfg.SettingsFile).
		Msg("Starting vision runtime")

	rt, err := runtime.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble runtime")
	}
	rt.Start()

	server := api.NewServer(rt)
	server.Setup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP API failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP API forced to shutdown")
	}
	rt.Shutdown()

	log.Info().Msg("Shutdown complete")
}
