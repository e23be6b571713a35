package store

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/productstore/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	listProductsSQL = `SELECT id, name, category, price, quantity
FROM products
ORDER BY id
LIMIT $1 OFFSET $2`

	insertProductSQL = `INSERT INTO products (id, name, category, price, quantity)
SELECT COALESCE(MAX(id), 0) + 1, $1::text, $2::text, $3::double precision, $4::integer FROM products
RETURNING id, name, category, price, quantity`

	updateProductSQL = `UPDATE products SET
    name     = COALESCE($2::text, name),
    category = COALESCE($3::text, category),
    price    = COALESCE($4::double precision, price),
    quantity = COALESCE($5::integer, quantity)
WHERE id = $1
RETURNING id, name, category, price, quantity`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// List retrieves the products on the given page ordered by id.
// It returns a slice of products, which may be empty if no products exist.
func (p *PgStore) List(ctx context.Context, page, limit int) ([]Product, error) {
	offset, size := offsetLimit(page, limit)
	rows, err := p.db.Query(ctx, listProductsSQL, size, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// Add inserts a product with id max(id)+1. The table lock keeps concurrent inserts from computing the same id.
func (p *PgStore) Add(ctx context.Context, fields ProductFields) (*Product, error) {
	var product Product
	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "LOCK TABLE products IN SHARE ROW EXCLUSIVE MODE"); err != nil {
			return err
		}
		values := Product{}
		fields.applyTo(&values)
		rows, err := tx.Query(ctx, insertProductSQL, values.Name, values.Category, values.Price, values.Quantity)
		if err != nil {
			return err
		}
		product, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Product])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

// Update overwrites the given fields of a product.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) Update(ctx context.Context, id int, patch ProductFields) (*Product, error) {
	rows, err := p.db.Query(ctx, updateProductSQL, id, patch.Name, patch.Category, patch.Price, patch.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	product, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &product, nil
}

// Delete removes a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) Delete(ctx context.Context, id int) error {
	tag, err := p.db.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return perrors.ErrProductNotFound
	}
	return nil
}
