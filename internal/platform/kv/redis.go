package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const maxTxAttempts = 16

// ErrContention is returned when an optimistic Redis transaction kept losing the race.
var ErrContention = errors.New("platform/kv: too much contention")

// Redis stores blobs as plain string keys. Update uses WATCH/MULTI so concurrent
// writers to the same key retry instead of overwriting each other.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps a connected client. Keys are stored as prefix+key.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// Get returns the value under key, or nil.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("platform/kv: redis get %s: %w", key, err)
	}
	return val, nil
}

// Update applies fn in an optimistic transaction.
func (r *Redis) Update(ctx context.Context, key string, fn UpdateFunc) error {
	full := r.prefix + key
	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			cur = nil
		} else if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, full)
				return nil
			}
			pipe.Set(ctx, full, next, 0)
			return nil
		})
		return err
	}
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, full)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
