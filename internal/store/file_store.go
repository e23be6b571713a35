package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	perrors "github.com/abgdnv/productstore/internal/errors"
)

// FileStore implements ProductStore on top of a single JSON file holding an array of products.
// Every call reads the whole file and every mutation rewrites it.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore backed by path, seeding it with an empty array if it does not exist.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := writeProducts(path, []Product{}); err != nil {
			return nil, fmt.Errorf("failed to seed data file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat data file: %w", err)
	}
	return &FileStore{path: path}, nil
}

// List returns the products on the given page.
func (s *FileStore) List(ctx context.Context, page, limit int) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := readProducts(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	start, end := pageBounds(page, limit, len(products))
	result := make([]Product, end-start)
	copy(result, products[start:end])
	return result, nil
}

// Add appends a product with id max(ids)+1 and persists the collection.
func (s *FileStore) Add(ctx context.Context, fields ProductFields) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := readProducts(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to add product: %w", err)
	}
	product := Product{ID: nextID(products)}
	fields.applyTo(&product)
	products = append(products, product)
	if err := writeProducts(s.path, products); err != nil {
		return nil, fmt.Errorf("failed to add product: %w", err)
	}
	return &product, nil
}

// Update merges patch into the product with the given id and persists the collection.
// Returns ErrProductNotFound without writing if the id is unknown.
func (s *FileStore) Update(ctx context.Context, id int, patch ProductFields) (*Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := readProducts(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	idx := indexOf(products, id)
	if idx < 0 {
		return nil, perrors.ErrProductNotFound
	}
	patch.applyTo(&products[idx])
	if err := writeProducts(s.path, products); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	updated := products[idx]
	return &updated, nil
}

// Delete removes every product with the given id and persists the collection.
// Returns ErrProductNotFound without writing if the id is unknown.
func (s *FileStore) Delete(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := readProducts(s.path)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	kept := products[:0]
	for _, p := range products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(products) {
		return perrors.ErrProductNotFound
	}
	if err := writeProducts(s.path, kept); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func nextID(products []Product) int {
	maxID := 0
	for _, p := range products {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID + 1
}

func indexOf(products []Product, id int) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func readProducts(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return products, nil
}

// writeProducts replaces the file at path through a temp file and rename.
func writeProducts(path string, products []Product) error {
	if products == nil {
		products = []Product{}
	}
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
