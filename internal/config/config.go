package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings, read from STREAMS_* environment variables.
type Config struct {
	DatabaseURL string `env:"STREAMS_DATABASE_URL"`
	GRPCAddr    string `env:"STREAMS_GRPC_ADDR" envDefault:":9090"`
	HTTPAddr    string `env:"STREAMS_HTTP_ADDR" envDefault:":8080"`
	NATSURL     string `env:"STREAMS_NATS_URL"`   // empty = no events
	AuthToken   string `env:"STREAMS_AUTH_TOKEN"` // empty = auth disabled
	LogLevel    string `env:"STREAMS_LOG_LEVEL" envDefault:"info"`

	// Sync settings
	SyncInterval   time.Duration `env:"STREAMS_SYNC_INTERVAL" envDefault:"3m"` // 0 = disabled
	SyncS3Bucket   string        `env:"STREAMS_SYNC_S3_BUCKET"`                // enables S3 when set
	SyncS3Endpoint string        `env:"STREAMS_SYNC_S3_ENDPOINT"`              // custom endpoint for MinIO
	SyncS3Region   string        `env:"STREAMS_SYNC_S3_REGION" envDefault:"us-east-1"`
	SyncS3Key      string        `env:"STREAMS_SYNC_S3_KEY" envDefault:"streams/schema.jsonl"`
	SyncFile       string        `env:"STREAMS_SYNC_FILE"` // local backup path, enables file sync when set
}

// Load parses the environment into a Config. STREAMS_DATABASE_URL is
// required.
func Load() (*Config, error) {
	return load(true)
}

// LoadInMemory is Load for a server backed by the in-memory store, where
// STREAMS_DATABASE_URL is not needed.
func LoadInMemory() (*Config, error) {
	return load(false)
}

func load(requireDatabase bool) (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if requireDatabase && strings.TrimSpace(c.DatabaseURL) == "" {
		return nil, fmt.Errorf("STREAMS_DATABASE_URL is required")
	}
	if c.SyncInterval < 0 {
		return nil, fmt.Errorf("STREAMS_SYNC_INTERVAL must not be negative, got %s", c.SyncInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return nil, err
	}
	return &c, nil
}

// SyncEnabled reports whether a backup destination is configured.
func (c *Config) SyncEnabled() bool {
	return c.SyncInterval > 0 && (c.SyncS3Bucket != "" || c.SyncFile != "")
}

// ParseLevel maps a STREAMS_LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("STREAMS_LOG_LEVEL: unknown level %q", s)
}
