package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	InstanceID  string
	Environment string
	Port        int
	LogLevel    string

	// Settings document
	SettingsFile string

	// NATS sync bus. Empty URL selects the in-process bus (bench mode).
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int

	// Device discovery and open
	DiscoveryInterval time.Duration
	DeviceGlob        string
	OpenRetries       int
	OpenRetryBackoff  time.Duration

	// Capture
	FrameQueueSize int

	// Stream output defaults, used when a camera has no persisted resolution
	DefaultStreamWidth  int
	DefaultStreamHeight int
	DefaultStreamFPS    int

	// Recording
	RecordingDir string

	// Metrics
	MetricsInterval time.Duration

	// Graceful shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		InstanceID:  getEnv("INSTANCE_ID", "visiond-1"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnvInt("PORT", 5800),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Settings document
		SettingsFile: getEnv("SETTINGS_FILE", "visiond-settings.yaml"),

		// NATS
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited

		// Device discovery and open
		DiscoveryInterval: getEnvDuration("DISCOVERY_INTERVAL", 10*time.Second),
		DeviceGlob:        getEnv("DEVICE_GLOB", "/dev/video*"),
		OpenRetries:       getEnvInt("OPEN_RETRIES", 3),
		OpenRetryBackoff:  getEnvDuration("OPEN_RETRY_BACKOFF", 1*time.Second),

		// Capture
		FrameQueueSize: getEnvInt("FRAME_QUEUE_SIZE", 5),

		// Stream output defaults
		DefaultStreamWidth:  getEnvInt("DEFAULT_STREAM_WIDTH", 320),
		DefaultStreamHeight: getEnvInt("DEFAULT_STREAM_HEIGHT", 240),
		DefaultStreamFPS:    getEnvInt("DEFAULT_STREAM_FPS", 30),

		// Recording
		RecordingDir: getEnv("RECORDING_DIR", "recordings"),

		// Metrics
		MetricsInterval: getEnvDuration("METRICS_INTERVAL", 1*time.Second),

		// Graceful shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
