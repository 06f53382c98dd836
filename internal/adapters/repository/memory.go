package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/okian/tweets/internal/domain/model"
)

// MemoryStore keeps tweets in a map guarded by a RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[int64]model.Tweet
	nextID int64
	closed bool

	settings
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		byID:     make(map[int64]model.Tweet),
		settings: newSettings("memory-store", opts),
	}
}

// All returns every tweet ordered by id.
func (s *MemoryStore) All(ctx context.Context) ([]model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := lo.Values(s.byID)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns a tweet by id.
func (s *MemoryStore) Get(ctx context.Context, id int64) (model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return model.Tweet{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Tweet{}, ErrClosed
	}

	t, ok := s.byID[id]
	if !ok {
		return model.Tweet{}, model.NewNotFound(id)
	}
	return t, nil
}

// Create assigns the next id and stores the tweet.
func (s *MemoryStore) Create(ctx context.Context, in model.Input) (model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return model.Tweet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Tweet{}, ErrClosed
	}

	s.nextID++
	now := s.now()
	t := model.Tweet{ID: s.nextID, CreatedAt: now, UpdatedAt: now}
	in.Apply(&t)
	s.byID[t.ID] = t
	return t, nil
}

// Update replaces the message of an existing tweet.
func (s *MemoryStore) Update(ctx context.Context, id int64, in model.Input) (model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return model.Tweet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Tweet{}, ErrClosed
	}

	t, ok := s.byID[id]
	if !ok {
		return model.Tweet{}, model.NewNotFound(id)
	}
	in.Apply(&t)
	t.UpdatedAt = s.now()
	s.byID[id] = t
	return t, nil
}

// Delete removes a tweet.
func (s *MemoryStore) Delete(ctx context.Context, id int64) (model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return model.Tweet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Tweet{}, ErrClosed
	}

	t, ok := s.byID[id]
	if !ok {
		return model.Tweet{}, model.NewNotFound(id)
	}
	delete(s.byID, id)
	return t, nil
}

// Count returns the number of tweets.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}

// Ping reports ErrClosed after Close.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Close marks the store closed. It is idempotent.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
