package catalog

import "context"

// Store persists products. Every backend honours the same contract:
//   - List returns products in insertion order.
//   - Get returns shared.ErrNotFound when the id is absent.
//   - Create ignores the supplied id, assigns max(id)+1 (1 for an empty collection),
//     sets version 1 and returns the stored record.
//   - Update replaces the record with the same id and bumps its version. It returns
//     shared.ErrNotFound for an unknown id and shared.ErrConflict when the supplied
//     version is non-zero and differs from the stored one.
//   - Delete is a no-op for an unknown id.
type Store interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, product Product) (Product, error)
	Delete(ctx context.Context, id int64) error
}

// NextID returns the id a new product receives given the existing collection.
func NextID(existing []Product) int64 {
	var maxID int64
	for _, p := range existing {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID + 1
}
