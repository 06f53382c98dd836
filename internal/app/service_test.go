package service_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/okian/tweets/internal/adapters/cache"
	"github.com/okian/tweets/internal/adapters/repository"
	service "github.com/okian/tweets/internal/app"
	"github.com/okian/tweets/internal/config"
	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
	block  chan struct{}
	closed bool
}

func (p *recordingPublisher) Publish(_ context.Context, e model.Event) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingPublisher) snapshot() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Event(nil), p.events...)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	gens map[string]int
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string]string{}, gens: map[string]int{}}
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (c *mapCache) Generation(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.gens[key]; ok {
		return strconv.Itoa(g), nil
	}
	return "", nil
}

func (c *mapCache) SetIfGeneration(_ context.Context, key, gen, value string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := ""
	if g, ok := c.gens[key]; ok {
		cur = strconv.Itoa(g)
	}
	if cur != gen {
		return false, nil
	}
	c.data[key] = value
	return true, nil
}

func (c *mapCache) Invalidate(_ context.Context, key string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	delete(c.data, key)
	return nil
}

func (c *mapCache) Ping(context.Context) error { return nil }
func (c *mapCache) Close() error               { return nil }

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then stats reflect the default config before start", func() {
			stats := svc.GetStats(context.Background())
			So(stats["started"], ShouldBeFalse)
			So(stats["store_driver"], ShouldEqual, config.DriverMemory)
			So(stats["worker_count"], ShouldEqual, 2)
			So(stats["queue_capacity"], ShouldEqual, 10_000)
			So(stats["cache_enabled"], ShouldBeFalse)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
		)

		Convey("Then the options override the config", func() {
			stats := svc.GetStats(context.Background())
			So(stats["worker_count"], ShouldEqual, 8)
			So(stats["queue_capacity"], ShouldEqual, 50_000)
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then every store operation fails as internal", func() {
			_, err := svc.All(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(err, model.ErrInternal), ShouldBeTrue)

			_, err = svc.Create(ctx, model.Input{Message: "hi"})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			So(errors.Is(svc.Ping(ctx), service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then Stop is a no-op", func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service with a recording publisher", t, func() {
		ctx := context.Background()
		pub := &recordingPublisher{}
		svc := service.New(
			service.WithPublisher(pub),
			service.WithWorkerCount(1),
		)
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When a tweet is created, updated and deleted", func() {
			created, err := svc.Create(ctx, model.Input{Message: "first"})
			So(err, ShouldBeNil)
			So(created.ID, ShouldBeGreaterThan, 0)

			got, err := svc.Get(ctx, created.ID)
			So(err, ShouldBeNil)
			So(got.Message, ShouldEqual, "first")

			updated, err := svc.Update(ctx, created.ID, model.Input{Message: "second"})
			So(err, ShouldBeNil)
			So(updated.Message, ShouldEqual, "second")

			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldBeTrue)
			So(stats["publisher"], ShouldEqual, "custom")
			So(stats["tweets"], ShouldEqual, int64(1))

			_, err = svc.Delete(ctx, created.ID)
			So(err, ShouldBeNil)

			_, err = svc.Get(ctx, created.ID)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)

			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then one event per mutation is published in order", func() {
				events := pub.snapshot()
				So(len(events), ShouldEqual, 3)
				So(events[0].Type, ShouldEqual, model.EventCreated)
				So(events[0].Message, ShouldEqual, "first")
				So(events[1].Type, ShouldEqual, model.EventUpdated)
				So(events[1].Message, ShouldEqual, "second")
				So(events[2].Type, ShouldEqual, model.EventDeleted)
				So(events[2].Message, ShouldBeEmpty)
				for _, e := range events {
					So(e.TweetID, ShouldEqual, created.ID)
					So(e.EventID, ShouldNotBeEmpty)
					So(e.At.IsZero(), ShouldBeFalse)
				}
				So(events[0].EventID, ShouldNotEqual, events[1].EventID)
			})

			Convey("Then the publisher is closed", func() {
				So(pub.closed, ShouldBeTrue)
				So(svc.GetStats(ctx)["started"], ShouldBeFalse)
			})
		})

		Convey("When a mutation fails", func() {
			_, err := svc.Update(ctx, 999, model.Input{Message: "nobody"})
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then no event is published", func() {
				So(pub.snapshot(), ShouldBeEmpty)
			})
		})

		Reset(func() {
			_ = svc.Stop(ctx)
		})
	})
}

func TestService_DropsWhenQueueFull(t *testing.T) {
	Convey("Given a service whose only worker is stuck publishing", t, func() {
		ctx := context.Background()
		pub := &recordingPublisher{block: make(chan struct{})}
		svc := service.New(
			service.WithPublisher(pub),
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
		)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When more tweets are created than can be buffered", func() {
			for i := 0; i < 3; i++ {
				_, err := svc.Create(ctx, model.Input{Message: "burst"})
				So(err, ShouldBeNil)
			}

			Convey("Then the writes still succeed and the overflow is dropped", func() {
				So(svc.Dropped(), ShouldBeGreaterThanOrEqualTo, 1)
				So(svc.GetStats(ctx)["tweets"], ShouldEqual, int64(3))

				close(pub.block)
				So(svc.Stop(ctx), ShouldBeNil)
				So(int64(len(pub.snapshot()))+svc.Dropped(), ShouldEqual, int64(3))
			})
		})
	})
}

func TestService_CacheWiring(t *testing.T) {
	Convey("Given a service with a cache client", t, func() {
		ctx := context.Background()
		client := newMapCache()
		svc := service.New(
			service.WithPublisher(&recordingPublisher{}),
			service.WithCacheClient(client),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then writes go through the cache", func() {
			So(svc.GetStats(ctx)["cache_enabled"], ShouldBeTrue)

			created, err := svc.Create(ctx, model.Input{Message: "cached"})
			So(err, ShouldBeNil)
			So(client.has(cache.Key(created.ID)), ShouldBeTrue)

			_, err = svc.Delete(ctx, created.ID)
			So(err, ShouldBeNil)
			So(client.has(cache.Key(created.ID)), ShouldBeFalse)
		})
	})
}

func TestService_Restart(t *testing.T) {
	Convey("Given a service that opened its own badger store", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.StoreDriver = config.DriverBadger
		cfg.BadgerPath = t.TempDir()

		svc := service.New(service.WithConfig(cfg))
		So(svc.Start(ctx), ShouldBeNil)
		created, err := svc.Create(ctx, model.Input{Message: "durable"})
		So(err, ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("When it is started again", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then the store and publisher are reopened", func() {
				So(svc.Ping(ctx), ShouldBeNil)

				got, err := svc.Get(ctx, created.ID)
				So(err, ShouldBeNil)
				So(got.Message, ShouldEqual, "durable")

				_, err = svc.Create(ctx, model.Input{Message: "after restart"})
				So(err, ShouldBeNil)
				So(svc.GetStats(ctx)["publisher"], ShouldEqual, "log")
			})
		})
	})
}

func TestService_Backends(t *testing.T) {
	Convey("Given the configured store drivers", t, func() {
		ctx := context.Background()

		Convey("When the driver is unknown", func() {
			cfg := config.New()
			cfg.StoreDriver = "mongo"

			_, err := service.OpenStore(ctx, cfg)
			So(errors.Is(err, repository.ErrUnknownDriver), ShouldBeTrue)

			svc := service.New(service.WithConfig(cfg), service.WithPublisher(&recordingPublisher{}))
			err = svc.Start(ctx)
			So(errors.Is(err, service.ErrStart), ShouldBeTrue)
			So(svc.GetStats(ctx)["started"], ShouldBeFalse)
		})

		Convey("When the driver is sqlite", func() {
			cfg := config.New()
			cfg.StoreDriver = config.DriverSQLite
			cfg.SQLiteDSN = "file:service_backends?mode=memory&cache=shared"

			svc := service.New(service.WithConfig(cfg), service.WithPublisher(&recordingPublisher{}))
			So(svc.Start(ctx), ShouldBeNil)

			created, err := svc.Create(ctx, model.Input{Message: "orm"})
			So(err, ShouldBeNil)
			got, err := svc.Get(ctx, created.ID)
			So(err, ShouldBeNil)
			So(got.Message, ShouldEqual, "orm")
			So(svc.Ping(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When the driver is badger", func() {
			cfg := config.New()
			cfg.StoreDriver = config.DriverBadger
			cfg.BadgerPath = t.TempDir()

			svc := service.New(service.WithConfig(cfg), service.WithPublisher(&recordingPublisher{}))
			So(svc.Start(ctx), ShouldBeNil)

			_, err := svc.Create(ctx, model.Input{Message: "kv"})
			So(err, ShouldBeNil)
			So(svc.GetStats(ctx)["tweets"], ShouldEqual, int64(1))
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When a ready store is injected", func() {
			store := repository.NewMemoryStore()
			svc := service.New(service.WithStore(store), service.WithPublisher(&recordingPublisher{}))
			So(svc.Start(ctx), ShouldBeNil)

			_, err := svc.Create(ctx, model.Input{Message: "injected"})
			So(err, ShouldBeNil)
			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, int64(1))
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}
