// Package blob implements the product and cart stores on a key-value blob store. Each
// collection lives under one key as a JSON array; an absent key reads as empty.
package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/platform/kv"
	"github.com/odyssey-erp/storefront/internal/shared"
)

const (
	// ProductsKey holds the JSON array of products.
	ProductsKey = "products"
	// CartKey holds the JSON array of cart items.
	CartKey = "cart"
)

// Products implements catalog.Store.
type Products struct {
	kv  kv.Store
	now func() time.Time
}

var _ catalog.Store = (*Products)(nil)

// NewProducts builds a product store on kv.
func NewProducts(store kv.Store) *Products {
	return &Products{kv: store, now: func() time.Time { return time.Now().UTC() }}
}

// List returns products in insertion order.
func (s *Products) List(ctx context.Context) ([]catalog.Product, error) {
	raw, err := s.kv.Get(ctx, ProductsKey)
	if err != nil {
		return nil, err
	}
	return decodeProducts(raw)
}

// Get returns the product with id.
func (s *Products) Get(ctx context.Context, id int64) (catalog.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, shared.ErrNotFound
}

// Create appends a product with the next id.
func (s *Products) Create(ctx context.Context, product catalog.Product) (catalog.Product, error) {
	err := s.kv.Update(ctx, ProductsKey, func(cur []byte) ([]byte, error) {
		products, err := decodeProducts(cur)
		if err != nil {
			return nil, err
		}
		now := s.now()
		product.ID = catalog.NextID(products)
		product.Version = 1
		product.CreatedAt = now
		product.UpdatedAt = now
		return json.Marshal(append(products, product))
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return product, nil
}

// Update replaces the product with the same id.
func (s *Products) Update(ctx context.Context, product catalog.Product) (catalog.Product, error) {
	err := s.kv.Update(ctx, ProductsKey, func(cur []byte) ([]byte, error) {
		products, err := decodeProducts(cur)
		if err != nil {
			return nil, err
		}
		for i, existing := range products {
			if existing.ID != product.ID {
				continue
			}
			if product.Version != 0 && product.Version != existing.Version {
				return nil, shared.ErrConflict
			}
			product.Version = existing.Version + 1
			product.CreatedAt = existing.CreatedAt
			product.UpdatedAt = s.now()
			products[i] = product
			return json.Marshal(products)
		}
		return nil, shared.ErrNotFound
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return product, nil
}

// Delete removes the product with id if present.
func (s *Products) Delete(ctx context.Context, id int64) error {
	return s.kv.Update(ctx, ProductsKey, func(cur []byte) ([]byte, error) {
		if cur == nil {
			return nil, nil
		}
		products, err := decodeProducts(cur)
		if err != nil {
			return nil, err
		}
		out := products[:0]
		for _, p := range products {
			if p.ID != id {
				out = append(out, p)
			}
		}
		return json.Marshal(out)
	})
}

func decodeProducts(raw []byte) ([]catalog.Product, error) {
	products := []catalog.Product{}
	if len(raw) == 0 {
		return products, nil
	}
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("storage/blob: decode products: %w", err)
	}
	return products, nil
}
