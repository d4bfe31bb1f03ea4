package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/storefront/internal/shared"
)

// Service coordinates product operations on top of a Store.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService builds Service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// List returns the filtered and sorted catalog.
func (s *Service) List(ctx context.Context, q Query) ([]Product, error) {
	products, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return Apply(products, q), nil
}

// All returns every product in store order.
func (s *Service) All(ctx context.Context) ([]Product, error) {
	products, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return products, nil
}

// Get loads a product by id.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.NewValidationError("id", "must be positive")
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get %d: %w", id, err)
	}
	return p, nil
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	in = Normalize(in)
	if err := Validate(in); err != nil {
		return Product{}, err
	}
	created, err := s.store.Create(ctx, in.Product())
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create: %w", err)
	}
	s.logger.Info("product created", slog.Int64("id", created.ID), slog.String("name", created.Name))
	return created, nil
}

// Update validates and replaces an existing product. A non-zero in.Version must match the
// stored version.
func (s *Service) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if id <= 0 {
		return Product{}, shared.NewValidationError("id", "must be positive")
	}
	in = Normalize(in)
	if err := Validate(in); err != nil {
		return Product{}, err
	}
	p := in.Product()
	p.ID = id
	updated, err := s.store.Update(ctx, p)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: update %d: %w", id, err)
	}
	s.logger.Info("product updated", slog.Int64("id", id), slog.Int64("version", updated.Version))
	return updated, nil
}

// Delete removes a product once the caller confirmed it. Unknown ids are a no-op.
func (s *Service) Delete(ctx context.Context, id int64, confirmed bool) error {
	if id <= 0 {
		return shared.NewValidationError("id", "must be positive")
	}
	if !confirmed {
		return shared.ErrConfirmationRequired
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("catalog: delete %d: %w", id, err)
	}
	s.logger.Info("product deleted", slog.Int64("id", id))
	return nil
}
