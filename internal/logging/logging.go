// Package logging sets up the process-wide zerolog logger and provides the
// contextual sub-loggers used by per-camera workers.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vision-runtime-go/internal/config"
)

// Setup configures the global logger: console output, RFC3339 timestamps,
// and the level from config. Every entry carries the instance id.
func Setup(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Str("instance_id", cfg.InstanceID).Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// ForService returns a logger tagged with a service name.
func ForService(service string) zerolog.Logger {
	return log.With().Str("service", service).Logger()
}

// ForCamera returns a logger tagged for one camera's workers.
func ForCamera(service, cameraID string) zerolog.Logger {
	return log.With().Str("service", service).Str("camera_id", cameraID).Logger()
}
