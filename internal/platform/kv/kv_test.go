package kv

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	bolt, err := OpenBolt(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemory(),
		"bolt":   bolt,
		"redis":  NewRedis(client, "test:"),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreMissingKeyReadsNil(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			val, err := store.Get(context.Background(), "products")
			require.NoError(t, err)
			assert.Nil(t, val)
			assert.NoError(t, store.Ping(context.Background()))
		})
	}
}

func TestStoreUpdateWritesAndDeletes(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Update(ctx, "cart", func(cur []byte) ([]byte, error) {
				assert.Nil(t, cur)
				return []byte(`[{"product_id":1,"quantity":1}]`), nil
			}))
			val, err := store.Get(ctx, "cart")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"product_id":1,"quantity":1}]`, string(val))

			require.NoError(t, store.Update(ctx, "cart", func([]byte) ([]byte, error) { return nil, nil }))
			val, err = store.Get(ctx, "cart")
			require.NoError(t, err)
			assert.Nil(t, val)
		})
	}
}

func TestStoreUpdateErrorLeavesValue(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Update(ctx, "k", func([]byte) ([]byte, error) { return []byte("v1"), nil }))
			err := store.Update(ctx, "k", func([]byte) ([]byte, error) { return []byte("v2"), boom })
			assert.ErrorIs(t, err, boom)
			val, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "v1", string(val))
		})
	}
}

func TestStoreConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			const workers = 8
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := store.Update(ctx, "counter", func(cur []byte) ([]byte, error) {
						n := 0
						if cur != nil {
							n, _ = strconv.Atoi(string(cur))
						}
						return []byte(strconv.Itoa(n + 1)), nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()
			val, err := store.Get(ctx, "counter")
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(workers), string(val))
		})
	}
}
