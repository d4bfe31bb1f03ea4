package blob

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/platform/kv"
)

// Cart implements cart.Store. The whole cart is one value, so every write replaces it
// atomically.
type Cart struct {
	kv kv.Store
}

var _ cart.Store = (*Cart)(nil)

// NewCart builds a cart store on kv.
func NewCart(store kv.Store) *Cart {
	return &Cart{kv: store}
}

// Items returns the persisted items.
func (s *Cart) Items(ctx context.Context) ([]cart.Item, error) {
	raw, err := s.kv.Get(ctx, CartKey)
	if err != nil {
		return nil, err
	}
	return decodeItems(raw)
}

// Mutate rewrites the cart with fn's result. An empty result removes the key.
func (s *Cart) Mutate(ctx context.Context, fn cart.MutateFunc) ([]cart.Item, error) {
	var out []cart.Item
	err := s.kv.Update(ctx, CartKey, func(cur []byte) ([]byte, error) {
		items, err := decodeItems(cur)
		if err != nil {
			return nil, err
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		out = append([]cart.Item{}, next...)
		if len(next) == 0 {
			return nil, nil
		}
		return json.Marshal(next)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeItems(raw []byte) ([]cart.Item, error) {
	items := []cart.Item{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("storage/blob: decode cart: %w", err)
	}
	return items, nil
}
