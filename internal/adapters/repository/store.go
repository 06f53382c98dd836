// Package repository defines the tweet store contract and its backends.
package repository

import (
	"context"

	"github.com/okian/tweets/internal/domain/model"
)

// Store provides read/write access to tweets.
//
// Missing ids are reported with an error wrapping model.ErrNotFound; any other
// error is a backend failure.
type Store interface {
	// All returns every tweet in id order.
	All(ctx context.Context) ([]model.Tweet, error)

	// Get returns the tweet with the given id.
	Get(ctx context.Context, id int64) (model.Tweet, error)

	// Create persists a new tweet built from in and returns it with its id.
	Create(ctx context.Context, in model.Input) (model.Tweet, error)

	// Update replaces the message of an existing tweet and returns the result.
	Update(ctx context.Context, id int64, in model.Input) (model.Tweet, error)

	// Delete removes a tweet and returns it as it was before removal.
	Delete(ctx context.Context, id int64) (model.Tweet, error)

	// Count returns the number of stored tweets.
	Count(ctx context.Context) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
