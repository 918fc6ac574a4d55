// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Event store backends.
const (
	EventStoreMemory   = "memory"
	EventStoreSQLite   = "sqlite"
	EventStorePostgres = "postgres"
	EventStoreRedis    = "redis"
)

// Config holds all environment-driven settings. Port and log-level flags
// in cmd/server override their env counterparts.
type Config struct {
	WSPort   int    `env:"WS_PORT" envDefault:"8080"`
	APIPort  int    `env:"API_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	ReapInterval  time.Duration `env:"REAP_INTERVAL" envDefault:"10s"`
	StatsInterval time.Duration `env:"STATS_INTERVAL" envDefault:"60s"`
	QueueSize     int           `env:"QUEUE_SIZE" envDefault:"1024"`

	EventStore      string `env:"EVENT_STORE" envDefault:"memory"`
	EventStoreLimit int    `env:"EVENT_STORE_LIMIT" envDefault:"1024"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"voxelrelay.db"`
	DatabaseURL     string `env:"DATABASE_URL"`
	RedisURL        string `env:"REDIS_URL"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	switch cfg.EventStore {
	case EventStoreMemory, EventStoreSQLite:
	case EventStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL must be set when EVENT_STORE=%s", EventStorePostgres)
		}
	case EventStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL must be set when EVENT_STORE=%s", EventStoreRedis)
		}
	default:
		return nil, fmt.Errorf("unknown event store: %q", cfg.EventStore)
	}

	return cfg, nil
}
