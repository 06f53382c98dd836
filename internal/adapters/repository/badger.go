package repository

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/logger"
)

const (
	badgerTweetPrefix = "tweet:"
	badgerSequenceKey = "seq:tweet"
	badgerSequenceBw  = 100
)

// BadgerStore keeps tweets in an embedded Badger database. Keys are the
// prefix followed by the big-endian id so iteration runs in id order.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence

	settings
}

var _ Store = (*BadgerStore)(nil)

// OpenBadger opens a Badger database at path. An empty path opens an
// in-memory database.
func OpenBadger(path string, opts ...Option) (*BadgerStore, error) {
	s := newSettings("badger-store", opts)

	bopts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("%w: badger: %w", ErrOpen, err)
	}

	seq, err := db.GetSequence([]byte(badgerSequenceKey), badgerSequenceBw)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: badger sequence: %w", ErrOpen, err)
	}

	return &BadgerStore{db: db, seq: seq, settings: s}, nil
}

func badgerKey(id int64) []byte {
	key := make([]byte, len(badgerTweetPrefix)+8)
	copy(key, badgerTweetPrefix)
	binary.BigEndian.PutUint64(key[len(badgerTweetPrefix):], uint64(id))
	return key
}

func badgerGet(txn *badger.Txn, id int64) (model.Tweet, error) {
	item, err := txn.Get(badgerKey(id))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return model.Tweet{}, model.NewNotFound(id)
	case err != nil:
		return model.Tweet{}, fmt.Errorf("find by primary key: %w", err)
	}

	var t model.Tweet
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &t) }); err != nil {
		return model.Tweet{}, fmt.Errorf("decode tweet %d: %w", id, err)
	}
	return t, nil
}

func badgerPut(txn *badger.Txn, t model.Tweet) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tweet %d: %w", t.ID, err)
	}
	return txn.Set(badgerKey(t.ID), data)
}

// All iterates the tweet prefix in key order.
func (s *BadgerStore) All(ctx context.Context) ([]model.Tweet, error) {
	out := make([]model.Tweet, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(badgerTweetPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var t model.Tweet
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &t) }); err != nil {
				return fmt.Errorf("decode tweet: %w", err)
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find all: %w", err)
	}
	return out, nil
}

// Get returns a tweet by id.
func (s *BadgerStore) Get(ctx context.Context, id int64) (model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return model.Tweet{}, err
	}
	var t model.Tweet
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		t, err = badgerGet(txn, id)
		return err
	})
	return t, err
}

// Create takes the next sequence value as id.
func (s *BadgerStore) Create(ctx context.Context, in model.Input) (model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return model.Tweet{}, err
	}
	n, err := s.seq.Next()
	if err != nil {
		return model.Tweet{}, fmt.Errorf("create: next id: %w", err)
	}

	now := s.now()
	// Sequences start at zero; ids start at one.
	t := model.Tweet{ID: int64(n) + 1, CreatedAt: now, UpdatedAt: now}
	in.Apply(&t)
	if err := s.db.Update(func(txn *badger.Txn) error { return badgerPut(txn, t) }); err != nil {
		return model.Tweet{}, fmt.Errorf("create: %w", err)
	}
	return t, nil
}

// Update finds and rewrites the tweet in one transaction.
func (s *BadgerStore) Update(ctx context.Context, id int64, in model.Input) (model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return model.Tweet{}, err
	}
	var t model.Tweet
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		if t, err = badgerGet(txn, id); err != nil {
			return err
		}
		in.Apply(&t)
		t.UpdatedAt = s.now()
		return badgerPut(txn, t)
	})
	if err != nil {
		return model.Tweet{}, err
	}
	return t, nil
}

// Delete finds and removes the tweet in one transaction.
func (s *BadgerStore) Delete(ctx context.Context, id int64) (model.Tweet, error) {
	if err := ctx.Err(); err != nil {
		return model.Tweet{}, err
	}
	var t model.Tweet
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		if t, err = badgerGet(txn, id); err != nil {
			return err
		}
		return txn.Delete(badgerKey(id))
	})
	if err != nil {
		return model.Tweet{}, err
	}
	return t, nil
}

// Count walks the tweet keys without fetching values.
func (s *BadgerStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerTweetPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return ctx.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Ping reports ErrClosed once the database is closed.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return ctx.Err()
}

// Close releases the id sequence and closes the database.
func (s *BadgerStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	if err := s.seq.Release(); err != nil {
		s.logger.Warn(context.Background(), "release sequence", logger.Error(err))
	}
	return s.db.Close()
}
