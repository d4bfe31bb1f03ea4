package kv

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("storefront")

// Bolt stores blobs in a single bbolt bucket on local disk.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating when needed) the database file at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("platform/kv: open bolt %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("platform/kv: create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Get returns a copy of the value under key, or nil.
func (b *Bolt) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		out = clone(tx.Bucket(boltBucket).Get([]byte(key)))
		return nil
	})
	return out, err
}

// Update runs fn inside a bolt write transaction.
func (b *Bolt) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		next, err := fn(clone(bucket.Get([]byte(key))))
		if err != nil {
			return err
		}
		if next == nil {
			return bucket.Delete([]byte(key))
		}
		return bucket.Put([]byte(key), next)
	})
}

// Ping checks the database is still open.
func (b *Bolt) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(boltBucket) == nil {
			return fmt.Errorf("platform/kv: bucket missing")
		}
		return nil
	})
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}
