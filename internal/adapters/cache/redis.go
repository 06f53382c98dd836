// Package cache provides a Redis read-through cache in front of a tweet store.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Client.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Client is the subset of key/value operations the cache relies on.
//
// Every key carries a generation that Invalidate bumps. A fill only lands
// when the generation still matches the one read before the store lookup,
// so a read that raced a write can never put the older tweet back.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	// Generation returns the current generation of key, "" if it has none.
	Generation(ctx context.Context, key string) (string, error)
	// SetIfGeneration stores value unless key's generation moved from gen.
	SetIfGeneration(ctx context.Context, key, gen, value string, ttl time.Duration) (bool, error)
	// Invalidate bumps key's generation and drops its value in one step.
	Invalidate(ctx context.Context, key string, genTTL time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// GenerationKey is where the generation of key is kept.
func GenerationKey(key string) string { return key + ":gen" }

// RedisClient adapts go-redis to Client.
type RedisClient struct {
	client *redis.Client
}

var _ Client = (*RedisClient)(nil)

// NewRedisClient creates a client for addr. It does not dial until first use.
func NewRedisClient(addr, password string, db int) *RedisClient {
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (r *RedisClient) Generation(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, GenerationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// SetIfGeneration watches the generation key so an Invalidate landing between
// the check and the SET aborts the transaction.
func (r *RedisClient) SetIfGeneration(ctx context.Context, key, gen, value string, ttl time.Duration) (bool, error) {
	genKey := GenerationKey(key)
	stored := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return stored, err
}

func (r *RedisClient) Invalidate(ctx context.Context, key string, genTTL time.Duration) error {
	genKey := GenerationKey(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		if genTTL > 0 {
			pipe.Expire(ctx, genKey, genTTL)
		}
		pipe.Del(ctx, key)
		return nil
	})
	return err
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
