package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/platform/db"
	"github.com/odyssey-erp/storefront/internal/shared"
)

const productColumns = `id, name, description, price::text, quantity, image_url, version, created_at, updated_at`

// Products implements catalog.Store.
type Products struct {
	pool *pgxpool.Pool
}

var _ catalog.Store = (*Products)(nil)

// NewProducts builds the product store.
func NewProducts(pool *pgxpool.Pool) *Products {
	return &Products{pool: pool}
}

// List returns every product ordered by id, which is insertion order.
func (s *Products) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: list products: %w", err)
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Get returns the product with id.
func (s *Products) Get(ctx context.Context, id int64) (catalog.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, shared.ErrNotFound
	}
	return p, err
}

// Create inserts a product with id max(id)+1. The table lock serialises concurrent
// creators so two inserts never compute the same id.
func (s *Products) Create(ctx context.Context, product catalog.Product) (catalog.Product, error) {
	var created catalog.Product
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE products IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("storage/postgres: lock products: %w", err)
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO products (id, name, description, price, quantity, image_url, version, created_at, updated_at)
			SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3::text::numeric, $4, $5, 1, now(), now() FROM products
			RETURNING `+productColumns,
			product.Name, product.Description, product.Price.String(), product.Quantity, product.ImageURL)
		var err error
		created, err = scanProduct(row)
		return err
	})
	if err != nil {
		return catalog.Product{}, err
	}
	return created, nil
}

// Update replaces the product row, checking the version when one is supplied.
func (s *Products) Update(ctx context.Context, product catalog.Product) (catalog.Product, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4::text::numeric, quantity = $5, image_url = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $1 AND ($7::bigint = 0 OR version = $7::bigint)
		RETURNING `+productColumns,
		product.ID, product.Name, product.Description, product.Price.String(), product.Quantity, product.ImageURL, product.Version)
	updated, err := scanProduct(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, err
	}
	if _, getErr := s.Get(ctx, product.ID); getErr != nil {
		return catalog.Product{}, getErr
	}
	return catalog.Product{}, shared.ErrConflict
}

// Delete removes the product row if present.
func (s *Products) Delete(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("storage/postgres: delete product %d: %w", id, err)
	}
	return nil
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var (
		p     catalog.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Quantity, &p.ImageURL, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, err
		}
		return catalog.Product{}, fmt.Errorf("storage/postgres: scan product: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("storage/postgres: parse price %q: %w", price, err)
	}
	p.Price = d
	return p, nil
}
