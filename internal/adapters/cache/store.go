package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/tweets/internal/adapters/repository"
	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/logger"
	"github.com/okian/tweets/pkg/metrics"
)

const keyPrefix = "tweet:"

// Key returns the cache key for a tweet id.
func Key(id int64) string { return keyPrefix + strconv.FormatInt(id, 10) }

// Store serves Get from the cache and invalidates entries on writes.
// Cache failures are logged and counted; they never fail a store call.
type Store struct {
	repository.Store

	client Client
	ttl    time.Duration
	logger logger.Logger
}

var _ repository.Store = (*Store)(nil)

// NewStore wraps next with a read-through cache on client.
func NewStore(next repository.Store, client Client, ttl time.Duration) *Store {
	return &Store{
		Store:  next,
		client: client,
		ttl:    ttl,
		logger: logger.Get().Named("tweet-cache"),
	}
}

// Get consults the cache before the wrapped store. The generation is read
// before the store so the fill is dropped if a write landed in between.
func (s *Store) Get(ctx context.Context, id int64) (model.Tweet, error) {
	key := Key(id)
	raw, err := s.client.Get(ctx, key)
	switch {
	case err == nil:
		var t model.Tweet
		uerr := json.Unmarshal([]byte(raw), &t)
		if uerr == nil {
			metrics.RecordCacheHit()
			return t, nil
		}
		s.fail(ctx, "decode cached tweet", id, uerr)
	case errors.Is(err, ErrMiss):
		metrics.RecordCacheMiss()
	default:
		s.fail(ctx, "cache get", id, err)
	}

	gen, gerr := s.client.Generation(ctx, key)
	if gerr != nil {
		s.fail(ctx, "cache generation", id, gerr)
	}

	t, err := s.Store.Get(ctx, id)
	if err != nil {
		return model.Tweet{}, err
	}
	if gerr == nil {
		s.fill(ctx, t, gen)
	}
	return t, nil
}

// Create primes the cache. A new id has no generation yet, so any write
// that follows the create wins over the prime.
func (s *Store) Create(ctx context.Context, in model.Input) (model.Tweet, error) {
	t, err := s.Store.Create(ctx, in)
	if err != nil {
		return model.Tweet{}, err
	}
	s.fill(ctx, t, "")
	return t, nil
}

// Update invalidates the entry; the next Get refills it.
func (s *Store) Update(ctx context.Context, id int64, in model.Input) (model.Tweet, error) {
	t, err := s.Store.Update(ctx, id, in)
	if err != nil {
		return model.Tweet{}, err
	}
	s.invalidate(ctx, id)
	return t, nil
}

// Delete invalidates the entry.
func (s *Store) Delete(ctx context.Context, id int64) (model.Tweet, error) {
	t, err := s.Store.Delete(ctx, id)
	if err != nil {
		return model.Tweet{}, err
	}
	s.invalidate(ctx, id)
	return t, nil
}

// Close closes the wrapped store and the cache client.
func (s *Store) Close() error {
	return errors.Join(s.Store.Close(), s.client.Close())
}

func (s *Store) fill(ctx context.Context, t model.Tweet, gen string) {
	data, err := json.Marshal(t)
	if err != nil {
		s.fail(ctx, "encode tweet", t.ID, err)
		return
	}
	if _, err := s.client.SetIfGeneration(ctx, Key(t.ID), gen, string(data), s.ttl); err != nil {
		s.fail(ctx, "cache set", t.ID, err)
	}
}

// invalidate runs after the store write committed. The generation outlives
// the entry so a slow reader holding the old generation still loses.
func (s *Store) invalidate(ctx context.Context, id int64) {
	if err := s.client.Invalidate(ctx, Key(id), 2*s.ttl); err != nil {
		s.fail(ctx, "cache invalidate", id, err)
	}
}

func (s *Store) fail(ctx context.Context, msg string, id int64, err error) {
	metrics.RecordCacheError()
	s.logger.Warn(ctx, msg, logger.Int64("tweet_id", id), logger.Error(err))
}
