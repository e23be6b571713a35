// Package store provides an interface for product storage operations.
package store

import (
	"context"
)

// DefaultListLimit is the page size List applies when called with a non-positive limit.
const DefaultListLimit = 1000

// Product is a stored product record.
type Product struct {
	ID       int     `json:"id"       db:"id"`
	Name     string  `json:"name"     db:"name"`
	Category string  `json:"category" db:"category"`
	Price    float64 `json:"price"    db:"price"`
	Quantity int     `json:"quantity" db:"quantity"`
}

// ProductFields holds the fields given to Add or Update. A nil field is not given.
type ProductFields struct {
	Name     *string
	Category *string
	Price    *float64
	Quantity *int
}

// applyTo overwrites the fields of p that are set in f.
func (f ProductFields) applyTo(p *Product) {
	if f.Name != nil {
		p.Name = *f.Name
	}
	if f.Category != nil {
		p.Category = *f.Category
	}
	if f.Price != nil {
		p.Price = *f.Price
	}
	if f.Quantity != nil {
		p.Quantity = *f.Quantity
	}
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., JSON file, database).
type ProductStore interface {
	// List returns the products on the given page, in storage order.
	// Returns an empty slice if the page is past the end.
	List(ctx context.Context, page, limit int) ([]Product, error)

	// Add stores a new product with the next free id and returns it.
	Add(ctx context.Context, fields ProductFields) (*Product, error)

	// Update overwrites the given fields of an existing product and returns the merged record.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id int, patch ProductFields) (*Product, error)

	// Delete removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Delete(ctx context.Context, id int) error
}

// pageBounds returns the [start, end) window of page within a collection of size n.
// Non-positive page or limit fall back to 1 and DefaultListLimit.
func pageBounds(page, limit, n int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if page-1 > n/limit {
		return n, n
	}
	start := (page - 1) * limit
	if start >= n {
		return n, n
	}
	end := start + limit
	if end > n || end < start {
		end = n
	}
	return start, end
}

// offsetLimit converts page and limit to an SQL offset and limit with the same defaults as pageBounds.
func offsetLimit(page, limit int) (int64, int64) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return int64(page-1) * int64(limit), int64(limit)
}
