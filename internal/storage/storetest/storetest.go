// Package storetest holds the behaviour every catalog.Store and cart.Store backend must
// share. Backend packages call these from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/shared"
)

// Product returns a valid product without identity.
func Product(name, price string, qty int64) catalog.Product {
	return catalog.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Quantity:    qty,
		ImageURL:    "https://img.example.com/" + name + ".png",
	}
}

// RunProductStore exercises the catalog.Store contract. newStore must return an empty store.
func RunProductStore(t *testing.T, newStore func(t *testing.T) catalog.Store) {
	t.Run("EmptyListAndFirstID", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		products, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)

		created, err := s.Create(ctx, Product("shirt", "19.90", 3))
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, int64(1), created.Version)
	})

	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		in := Product("hat", "9.99", 7)
		in.ID = 42
		created, err := s.Create(ctx, in)
		require.NoError(t, err)

		got, err := s.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.Description, got.Description)
		assert.True(t, in.Price.Equal(got.Price), "price %s != %s", in.Price, got.Price)
		assert.Equal(t, in.Quantity, got.Quantity)
		assert.Equal(t, in.ImageURL, got.ImageURL)
		assert.NotEqual(t, int64(42), got.ID)
	})

	t.Run("PriceKeepsScale", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for _, price := range []string{"9.999", "0.001", "1234567890.5"} {
			created, err := s.Create(ctx, Product("p"+price, price, 1))
			require.NoError(t, err)
			got, err := s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(price).Equal(got.Price), "price %s != %s", price, got.Price)
		}
	})

	t.Run("IDsAreMaxPlusOne", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for _, name := range []string{"a", "b", "c"} {
			_, err := s.Create(ctx, Product(name, "1.00", 1))
			require.NoError(t, err)
		}
		require.NoError(t, s.Delete(ctx, 2))
		created, err := s.Create(ctx, Product("d", "1.00", 1))
		require.NoError(t, err)
		assert.Equal(t, int64(4), created.ID)

		require.NoError(t, s.Delete(ctx, 4))
		created, err = s.Create(ctx, Product("e", "1.00", 1))
		require.NoError(t, err)
		assert.Equal(t, int64(4), created.ID)
	})

	t.Run("NetEffectOfSequence", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		a, err := s.Create(ctx, Product("a", "1.00", 1))
		require.NoError(t, err)
		b, err := s.Create(ctx, Product("b", "2.00", 2))
		require.NoError(t, err)
		c, err := s.Create(ctx, Product("c", "3.00", 3))
		require.NoError(t, err)

		b.Name = "b2"
		_, err = s.Update(ctx, b)
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, a.ID))
		require.NoError(t, s.Delete(ctx, 999))

		products, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "b2", products[0].Name)
		assert.Equal(t, c.ID, products[1].ID)

		seen := map[int64]bool{}
		for _, p := range products {
			assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
			seen[p.ID] = true
		}
	})

	t.Run("UpdateUnknownIsNotFound", func(t *testing.T) {
		s := newStore(t)
		p := Product("ghost", "1.00", 1)
		p.ID = 77
		_, err := s.Update(context.Background(), p)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = s.Get(context.Background(), 77)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("UpdateChecksVersion", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		created, err := s.Create(ctx, Product("lamp", "40.00", 2))
		require.NoError(t, err)

		first := created
		first.Quantity = 5
		updated, err := s.Update(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)

		stale := created
		stale.Quantity = 9
		_, err = s.Update(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConflict)

		blind := created
		blind.Version = 0
		blind.Quantity = 11
		updated, err = s.Update(ctx, blind)
		require.NoError(t, err)
		assert.Equal(t, int64(3), updated.Version)
		assert.Equal(t, int64(11), updated.Quantity)
	})

	t.Run("ConcurrentCreatesGetUniqueIDs", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		const n = 10
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Create(ctx, Product("p", "1.00", 1))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		products, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, products, n)
		seen := map[int64]bool{}
		for _, p := range products {
			assert.False(t, seen[p.ID])
			seen[p.ID] = true
		}
	})
}

// RunCartStore exercises the cart.Store contract. newStore must return an empty cart.
func RunCartStore(t *testing.T, newStore func(t *testing.T) cart.Store) {
	t.Run("EmptyCart", func(t *testing.T) {
		items, err := newStore(t).Items(context.Background())
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("MutateKeepsOrder", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Mutate(ctx, func(items []cart.Item) ([]cart.Item, error) {
			return append(items, cart.Item{ProductID: 3, Quantity: 1}, cart.Item{ProductID: 1, Quantity: 2}), nil
		})
		require.NoError(t, err)
		items, err := s.Items(ctx)
		require.NoError(t, err)
		assert.Equal(t, []cart.Item{{ProductID: 3, Quantity: 1}, {ProductID: 1, Quantity: 2}}, items)
	})

	t.Run("MutateErrorLeavesCart", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Mutate(ctx, func([]cart.Item) ([]cart.Item, error) {
			return []cart.Item{{ProductID: 1, Quantity: 1}}, nil
		})
		require.NoError(t, err)
		_, err = s.Mutate(ctx, func([]cart.Item) ([]cart.Item, error) {
			return nil, shared.ErrValidation
		})
		assert.ErrorIs(t, err, shared.ErrValidation)
		items, err := s.Items(ctx)
		require.NoError(t, err)
		assert.Equal(t, []cart.Item{{ProductID: 1, Quantity: 1}}, items)
	})

	t.Run("ClearEmptiesCart", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		_, err := s.Mutate(ctx, func([]cart.Item) ([]cart.Item, error) {
			return []cart.Item{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 4}}, nil
		})
		require.NoError(t, err)
		out, err := s.Mutate(ctx, func([]cart.Item) ([]cart.Item, error) { return nil, nil })
		require.NoError(t, err)
		assert.Empty(t, out)
		items, err := s.Items(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("ConcurrentIncrementsAreNotLost", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		const n = 8
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Mutate(ctx, func(items []cart.Item) ([]cart.Item, error) {
					if len(items) == 0 {
						return []cart.Item{{ProductID: 5, Quantity: 1}}, nil
					}
					items[0].Quantity++
					return items, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		items, err := s.Items(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, int64(n), items[0].Quantity)
	})
}
