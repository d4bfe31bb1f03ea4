package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/platform/db"
)

// Cart implements cart.Store.
type Cart struct {
	pool *pgxpool.Pool
}

var _ cart.Store = (*Cart)(nil)

// NewCart builds the cart store.
func NewCart(pool *pgxpool.Pool) *Cart {
	return &Cart{pool: pool}
}

// Items returns items in the order they were first added.
func (s *Cart) Items(ctx context.Context) ([]cart.Item, error) {
	return queryItems(ctx, s.pool)
}

// Mutate rewrites the cart inside one transaction holding an exclusive table lock, so
// readers see either the old or the new cart.
func (s *Cart) Mutate(ctx context.Context, fn cart.MutateFunc) ([]cart.Item, error) {
	var out []cart.Item
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE cart_items IN EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("storage/postgres: lock cart: %w", err)
		}
		items, err := queryItems(ctx, tx)
		if err != nil {
			return err
		}
		next, err := fn(items)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items`); err != nil {
			return fmt.Errorf("storage/postgres: clear cart: %w", err)
		}
		if len(next) > 0 {
			rows := make([][]any, 0, len(next))
			for i, it := range next {
				rows = append(rows, []any{it.ProductID, it.Quantity, i})
			}
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{"cart_items"}, []string{"product_id", "quantity", "position"}, pgx.CopyFromRows(rows)); err != nil {
				return fmt.Errorf("storage/postgres: write cart: %w", err)
			}
		}
		out = append([]cart.Item{}, next...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q querier) ([]cart.Item, error) {
	rows, err := q.Query(ctx, `SELECT product_id, quantity FROM cart_items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: list cart: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ProductID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("storage/postgres: scan cart: %w", err)
	}
	if items == nil {
		items = []cart.Item{}
	}
	return items, nil
}
