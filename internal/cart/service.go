package cart

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/shared"
)

// ProductSource resolves cart references against the catalog.
type ProductSource interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	All(ctx context.Context) ([]catalog.Product, error)
}

// Service coordinates cart operations.
type Service struct {
	store    Store
	products ProductSource
	logger   *slog.Logger
}

var validate = shared.NewValidator()

// NewService builds Service.
func NewService(store Store, products ProductSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, products: products, logger: logger}
}

// List returns the persisted items.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.store.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("cart: list: %w", err)
	}
	return items, nil
}

// AddOrIncrement adds one unit of a product: the existing item is incremented, otherwise
// a new item with quantity 1 is appended. The product must exist.
func (s *Service) AddOrIncrement(ctx context.Context, productID int64) (Item, error) {
	if productID <= 0 {
		return Item{}, shared.NewValidationError("product_id", "must be positive")
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return Item{}, fmt.Errorf("cart: add %d: %w", productID, err)
	}
	var added Item
	_, err := s.store.Mutate(ctx, func(items []Item) ([]Item, error) {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity++
				added = items[i]
				return items, nil
			}
		}
		added = Item{ProductID: productID, Quantity: 1}
		return append(items, added), nil
	})
	if err != nil {
		return Item{}, fmt.Errorf("cart: add %d: %w", productID, err)
	}
	s.logger.Info("cart item added", slog.Int64("product_id", productID), slog.Int64("quantity", added.Quantity))
	return added, nil
}

// SetQuantity changes the quantity of an item. Quantities below 1 are ignored and an
// unknown product id leaves the cart as it is.
func (s *Service) SetQuantity(ctx context.Context, productID, quantity int64) ([]Item, error) {
	if quantity < 1 {
		return s.List(ctx)
	}
	items, err := s.store.Mutate(ctx, func(items []Item) ([]Item, error) {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = quantity
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cart: set quantity %d: %w", productID, err)
	}
	return items, nil
}

// Remove deletes the item for a product once the caller confirmed it.
func (s *Service) Remove(ctx context.Context, productID int64, confirmed bool) ([]Item, error) {
	if !confirmed {
		return nil, shared.ErrConfirmationRequired
	}
	items, err := s.store.Mutate(ctx, func(items []Item) ([]Item, error) {
		out := items[:0]
		for _, it := range items {
			if it.ProductID != productID {
				out = append(out, it)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cart: remove %d: %w", productID, err)
	}
	s.logger.Info("cart item removed", slog.Int64("product_id", productID))
	return items, nil
}

// ReplaceAll atomically swaps the whole cart for items. Items for the same product are
// merged; every quantity must be positive.
func (s *Service) ReplaceAll(ctx context.Context, items []Item) ([]Item, error) {
	merged := make([]Item, 0, len(items))
	index := make(map[int64]int, len(items))
	for i, it := range items {
		if err := shared.ValidateStruct(validate, it); err != nil {
			return nil, fmt.Errorf("cart: item %d: %w", i, err)
		}
		if pos, ok := index[it.ProductID]; ok {
			merged[pos].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	out, err := s.store.Mutate(ctx, func([]Item) ([]Item, error) {
		return merged, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cart: replace: %w", err)
	}
	return out, nil
}

// Empty clears the cart on explicit user request.
func (s *Service) Empty(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return shared.ErrConfirmationRequired
	}
	return s.Clear(ctx)
}

// Clear removes every item in a single write.
func (s *Service) Clear(ctx context.Context) error {
	if _, err := s.store.Mutate(ctx, func([]Item) ([]Item, error) {
		return nil, nil
	}); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	s.logger.Info("cart cleared")
	return nil
}

// View loads the cart and the catalog concurrently and resolves them.
func (s *Service) View(ctx context.Context) (View, error) {
	var (
		items    []Item
		products []catalog.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.store.Items(gctx)
		if err != nil {
			return fmt.Errorf("cart: items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = s.products.All(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}
	return BuildView(items, products), nil
}
