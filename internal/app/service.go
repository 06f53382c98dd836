// Package service wires the tweet store stack and the change event pipeline
// behind the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tweets/internal/adapters/cache"
	eventqueue "github.com/okian/tweets/internal/adapters/mq/queue"
	"github.com/okian/tweets/internal/adapters/mq/publisher"
	workerpool "github.com/okian/tweets/internal/adapters/mq/worker"
	"github.com/okian/tweets/internal/adapters/repository"
	"github.com/okian/tweets/internal/config"
	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/logger"
	"github.com/okian/tweets/pkg/metrics"
)

// Service implements the API dependencies for the tweets resource.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store      repository.Store
	backend    repository.Store
	cacheConn  cache.Client
	publisher  publisher.Publisher
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	publisherKind string

	// State
	started       bool
	ownsBackend   bool
	ownsPublisher bool
	dropped atomic.Int64
	cancel  context.CancelFunc

	logger logger.Logger
	now    func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration the store stack is built from.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithStore sets a ready backend, bypassing store_driver.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.backend = store
	}
}

// WithPublisher sets the event publisher, bypassing amqp_url.
func WithPublisher(p publisher.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
		if p != nil {
			s.publisherKind = "custom"
		}
	}
}

// WithCacheClient enables the read-through cache with the given client.
func WithCacheClient(client cache.Client) Option {
	return func(s *Service) {
		s.cacheConn = client
	}
}

// WithWorkerCount sets the number of publishing workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Worker count and queue size default to the
// config values unless set explicitly.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: config.New(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workerCount == 0 {
		s.workerCount = s.cfg.EventWorkerCount
	}
	if s.queueSize == 0 {
		s.queueSize = s.cfg.EventQueueSize
	}
	return s
}

// Start opens the store and starts the event pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting tweets service...", logger.String("store_driver", s.driver()))

	backend := s.backend
	ownsBackend := backend == nil
	if ownsBackend {
		var err error
		backend, err = OpenStore(ctx, s.cfg, repository.WithLogger(s.logger.Named("store")))
		if err != nil {
			return fmt.Errorf("%w: open store: %w", ErrStart, err)
		}
	}

	pub := s.publisher
	kind := s.publisherKind
	ownsPublisher := pub == nil
	if ownsPublisher {
		var err error
		if pub, kind, err = openPublisher(s.cfg); err != nil {
			if ownsBackend {
				_ = backend.Close()
			}
			return fmt.Errorf("%w: open publisher: %w", ErrStart, err)
		}
	}

	s.backend = backend
	s.ownsBackend = ownsBackend
	s.ownsPublisher = ownsPublisher
	s.store = buildStore(ctx, s.cfg, backend, s.cacheConn, s.logger)
	s.publisher = pub
	s.publisherKind = kind

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, pub,
		workerpool.WithLogger(s.logger.Named("worker")),
	)

	// Workers outlive the caller's context so Stop can drain the queue.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "tweets service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("publisher", kind),
		logger.Any("cache", s.cacheEnabled()),
	)
	return nil
}

// Stop drains pending events, then closes the publisher and the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping tweets service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cancel()
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	// Whatever Start opened is closed now; the next Start opens it again.
	if s.ownsBackend {
		s.backend = nil
	}
	if s.ownsPublisher {
		s.publisher = nil
		s.publisherKind = ""
	}

	s.started = false
	s.logger.Info(ctx, "tweets service stopped",
		logger.Int64("events_published", s.workerPool.Published()),
		logger.Int64("events_dropped", s.dropped.Load()),
	)
	return errors.Join(errs...)
}

func (s *Service) current() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, model.NewInternal(ErrNotStarted)
	}
	return s.store, nil
}

// All returns every tweet.
func (s *Service) All(ctx context.Context) ([]model.Tweet, error) {
	store, err := s.current()
	if err != nil {
		return nil, err
	}
	return store.All(ctx)
}

// Get returns the tweet with id.
func (s *Service) Get(ctx context.Context, id int64) (model.Tweet, error) {
	store, err := s.current()
	if err != nil {
		return model.Tweet{}, err
	}
	return store.Get(ctx, id)
}

// Create stores a new tweet and emits tweet.created.
func (s *Service) Create(ctx context.Context, in model.Input) (model.Tweet, error) {
	store, err := s.current()
	if err != nil {
		return model.Tweet{}, err
	}
	t, err := store.Create(ctx, in)
	if err != nil {
		return model.Tweet{}, err
	}
	s.emit(ctx, model.EventCreated, t)
	return t, nil
}

// Update replaces the message of tweet id and emits tweet.updated.
func (s *Service) Update(ctx context.Context, id int64, in model.Input) (model.Tweet, error) {
	store, err := s.current()
	if err != nil {
		return model.Tweet{}, err
	}
	t, err := store.Update(ctx, id, in)
	if err != nil {
		return model.Tweet{}, err
	}
	s.emit(ctx, model.EventUpdated, t)
	return t, nil
}

// Delete removes tweet id and emits tweet.deleted.
func (s *Service) Delete(ctx context.Context, id int64) (model.Tweet, error) {
	store, err := s.current()
	if err != nil {
		return model.Tweet{}, err
	}
	t, err := store.Delete(ctx, id)
	if err != nil {
		return model.Tweet{}, err
	}
	s.emit(ctx, model.EventDeleted, t)
	return t, nil
}

var mutationOps = map[model.EventType]string{
	model.EventCreated: "create",
	model.EventUpdated: "update",
	model.EventDeleted: "delete",
}

// emit enqueues a change event. A full queue drops the event; the mutation
// already succeeded and the request is never held up by publishing.
func (s *Service) emit(ctx context.Context, typ model.EventType, t model.Tweet) {
	metrics.RecordTweetMutation(mutationOps[typ])

	e := model.Event{
		EventID: uuid.NewString(),
		Type:    typ,
		TweetID: t.ID,
		At:      s.now(),
	}
	if typ != model.EventDeleted {
		e.Message = t.Message
	}

	// The request context may be canceled right after the response is
	// written; the event belongs to the committed mutation.
	if !s.eventQueue.Enqueue(context.WithoutCancel(ctx), e) {
		s.dropped.Add(1)
		s.logger.Warn(ctx, "tweet event dropped",
			logger.String("event_id", e.EventID),
			logger.String("type", string(typ)),
			logger.Int64("tweet_id", t.ID),
		)
	}
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	store, err := s.current()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"store_driver":   s.driver(),
		"cache_enabled":  s.cacheEnabled(),
		"worker_count":   s.workerCount,
		"queue_capacity": s.queueSize,
		"events_dropped": s.dropped.Load(),
	}
	if !s.started {
		return stats
	}

	stats["publisher"] = s.publisherKind
	stats["queue_length"] = s.eventQueue.Len(ctx)
	stats["events_published"] = s.workerPool.Published()
	stats["events_failed"] = s.workerPool.Failed()

	if n, err := s.store.Count(ctx); err != nil {
		s.logger.Warn(ctx, "count tweets failed", logger.Error(err))
	} else {
		stats["tweets"] = n
		metrics.UpdateTweetsTotal(n)
	}
	return stats
}

// Dropped returns how many change events were dropped on a full queue.
func (s *Service) Dropped() int64 { return s.dropped.Load() }

func (s *Service) driver() string { return s.cfg.StoreDriver }

func (s *Service) cacheEnabled() bool {
	return s.cacheConn != nil || s.cfg.RedisAddr != ""
}
