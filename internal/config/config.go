// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and TWEETS_* environment variables on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers understood by the service.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PathPrefix is where the tweet routes are mounted.
	PathPrefix string `koanf:"path_prefix"`

	// MessageMaxLength caps the tweet message length in characters.
	MessageMaxLength int `koanf:"message_max_length"`

	// RequestTimeoutMS bounds each request's context.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// StoreDriver selects the tweet store backend.
	StoreDriver string `koanf:"store_driver"`
	SQLiteDSN   string `koanf:"sqlite_dsn"`
	PostgresDSN string `koanf:"postgres_dsn"`
	BadgerPath  string `koanf:"badger_path"`

	// RedisAddr enables the read-through cache when set.
	RedisAddr       string `koanf:"redis_addr"`
	RedisPassword   string `koanf:"redis_password"`
	RedisDB         int    `koanf:"redis_db"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`

	// AMQPURL enables RabbitMQ event publishing when set; events are logged otherwise.
	AMQPURL          string `koanf:"amqp_url"`
	EventsQueue      string `koanf:"events_queue"`
	EventQueueSize   int    `koanf:"event_queue_size"`
	EventWorkerCount int    `koanf:"event_worker_count"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":8080",
		PathPrefix:       "/tweets",
		MessageMaxLength: 280,
		RequestTimeoutMS: 10_000,
		StoreDriver:      DriverMemory,
		SQLiteDSN:        "file::memory:?cache=shared",
		BadgerPath:       "data/tweets.badger",
		CacheTTLSeconds:  600,
		EventsQueue:      "tweets.events",
		EventQueueSize:   10_000,
		EventWorkerCount: 2,
	}
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MessageMaxLength <= 0:
		return fmt.Errorf("%w: message_max_length must be positive", ErrInvalidConfig)
	case c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/"):
		return fmt.Errorf("%w: path_prefix must start with /", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("%w: sqlite_dsn is required for the sqlite driver", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres driver", ErrInvalidConfig)
		}
	case DriverBadger:
		if c.BadgerPath == "" {
			return fmt.Errorf("%w: badger_path is required for the badger driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
