// Package postgres implements the product and cart stores on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          BIGINT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       NUMERIC NOT NULL CHECK (price >= 0),
	quantity    BIGINT NOT NULL CHECK (quantity >= 0),
	image_url   TEXT NOT NULL DEFAULT '',
	version     BIGINT NOT NULL DEFAULT 1,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cart_items (
	product_id BIGINT PRIMARY KEY,
	quantity   BIGINT NOT NULL CHECK (quantity > 0),
	position   INT NOT NULL
);

ALTER TABLE products ALTER COLUMN price TYPE NUMERIC;
`

// EnsureSchema creates the tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("storage/postgres: ensure schema: %w", err)
	}
	return nil
}
