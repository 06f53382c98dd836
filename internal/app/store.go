package service

import (
	"context"
	"fmt"

	"github.com/okian/tweets/internal/adapters/cache"
	"github.com/okian/tweets/internal/adapters/mq/publisher"
	"github.com/okian/tweets/internal/adapters/repository"
	"github.com/okian/tweets/internal/config"
	"github.com/okian/tweets/pkg/logger"
)

// OpenStore opens the backend named by cfg.StoreDriver. opts are passed to
// the backend constructor.
func OpenStore(ctx context.Context, cfg *config.Config, opts ...repository.Option) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repository.NewMemoryStore(opts...), nil
	case config.DriverSQLite:
		return repository.OpenSQLite(cfg.SQLiteDSN, opts...)
	case config.DriverPostgres:
		return repository.OpenPostgres(ctx, cfg.PostgresDSN, opts...)
	case config.DriverBadger:
		return repository.OpenBadger(cfg.BadgerPath, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", repository.ErrUnknownDriver, cfg.StoreDriver)
	}
}

// buildStore layers metrics and, when configured, the Redis cache over the
// backend.
func buildStore(ctx context.Context, cfg *config.Config, backend repository.Store, client cache.Client, log logger.Logger) repository.Store {
	var s repository.Store = repository.NewInstrumented(backend, cfg.StoreDriver)

	if client == nil && cfg.RedisAddr != "" {
		client = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	if client == nil {
		return s
	}
	if err := client.Ping(ctx); err != nil {
		// The cache degrades to pass-through on errors; start anyway.
		log.Warn(ctx, "cache not reachable", logger.Error(err))
	}
	return cache.NewStore(s, client, cfg.CacheTTL())
}

// openPublisher connects to RabbitMQ when amqp_url is set and falls back to
// the log publisher otherwise.
func openPublisher(cfg *config.Config) (publisher.Publisher, string, error) {
	if cfg.AMQPURL == "" {
		return publisher.NewLog(), "log", nil
	}
	p, err := publisher.DialAMQP(cfg.AMQPURL, cfg.EventsQueue)
	if err != nil {
		return nil, "", err
	}
	return p, "amqp", nil
}
