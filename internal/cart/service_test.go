package cart_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/platform/kv"
	"github.com/odyssey-erp/storefront/internal/shared"
	"github.com/odyssey-erp/storefront/internal/storage/blob"
)

type fixture struct {
	catalog *catalog.Service
	cart    *cart.Service
}

func newFixture(t *testing.T, prices ...string) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kv.NewMemory()
	products := catalog.NewService(blob.NewProducts(store), logger)
	for i, price := range prices {
		qty := int64(10)
		_, err := products.Create(context.Background(), catalog.ProductInput{
			Name:     "Product " + string(rune('A'+i)),
			Price:    decimal.RequireFromString(price),
			Quantity: &qty,
		})
		require.NoError(t, err)
	}
	return fixture{catalog: products, cart: cart.NewService(blob.NewCart(store), products, logger)}
}

func TestAddOrIncrement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "9.99", "5.00")

	_, err := f.cart.AddOrIncrement(ctx, 1)
	require.NoError(t, err)
	item, err := f.cart.AddOrIncrement(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, cart.Item{ProductID: 1, Quantity: 2}, item)

	_, err = f.cart.AddOrIncrement(ctx, 2)
	require.NoError(t, err)

	items, err := f.cart.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []cart.Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, items)
}

func TestAddUnknownProduct(t *testing.T) {
	_, err := newFixture(t).cart.AddOrIncrement(context.Background(), 5)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = newFixture(t).cart.AddOrIncrement(context.Background(), 0)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSetQuantityIgnoresBelowOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "1.00")
	_, err := f.cart.AddOrIncrement(ctx, 1)
	require.NoError(t, err)

	items, err := f.cart.SetQuantity(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), items[0].Quantity)

	items, err = f.cart.SetQuantity(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), items[0].Quantity)

	items, err = f.cart.SetQuantity(ctx, 1, -3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), items[0].Quantity)
}

func TestRemoveAndEmptyNeedConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "1.00", "2.00")
	for _, id := range []int64{1, 2} {
		_, err := f.cart.AddOrIncrement(ctx, id)
		require.NoError(t, err)
	}

	_, err := f.cart.Remove(ctx, 1, false)
	assert.ErrorIs(t, err, shared.ErrConfirmationRequired)
	assert.ErrorIs(t, f.cart.Empty(ctx, false), shared.ErrConfirmationRequired)

	items, err := f.cart.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = f.cart.Remove(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, []cart.Item{{ProductID: 2, Quantity: 1}}, items)

	require.NoError(t, f.cart.Empty(ctx, true))
	items, err = f.cart.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestReplaceAllMergesAndValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "1.00")
	_, err := f.cart.AddOrIncrement(ctx, 1)
	require.NoError(t, err)

	out, err := f.cart.ReplaceAll(ctx, []cart.Item{{ProductID: 3, Quantity: 1}, {ProductID: 4, Quantity: 2}, {ProductID: 3, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, []cart.Item{{ProductID: 3, Quantity: 3}, {ProductID: 4, Quantity: 2}}, out)

	_, err = f.cart.ReplaceAll(ctx, []cart.Item{{ProductID: 5, Quantity: 1}, {ProductID: 6, Quantity: 0}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	items, err := f.cart.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, out, items)
}

func TestViewAfterProductDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "9.99", "3.00")
	for _, id := range []int64{1, 1, 2} {
		_, err := f.cart.AddOrIncrement(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, f.catalog.Delete(ctx, 2, true))

	v, err := f.cart.View(ctx)
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, "19.98", v.Total.StringFixed(2))
	assert.Equal(t, int64(2), v.Count)
	assert.Len(t, v.Items, 2)
}
