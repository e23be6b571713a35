package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	perrors "github.com/abgdnv/productstore/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func seededStore(t *testing.T, products ...Product) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, writeProducts(path, products))
	s, err := NewFileStore(path)
	require.NoError(t, err)
	return s, path
}

func sampleProducts(n int) []Product {
	products := make([]Product, n)
	for i := range products {
		products[i] = Product{ID: i + 1, Name: "Product", Category: "Tools", Price: float64(i+1) * 1.5, Quantity: i + 1}
	}
	return products
}

func Test_NewFileStore_SeedsEmptyArray(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "nested", "dir", "products.json")

	// when
	s, err := NewFileStore(path)

	// then
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	products, err := s.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func Test_NewFileStore_KeepsExistingFile(t *testing.T) {
	// given
	s, path := seededStore(t, sampleProducts(2)...)
	before, err := os.Stat(path)
	require.NoError(t, err)

	// when
	_, err = NewFileStore(path)

	// then
	require.NoError(t, err)
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after))
	products, err := s.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func Test_FileStore_List(t *testing.T) {
	collection := sampleProducts(25)

	testCases := []struct {
		name     string
		page     int
		limit    int
		expected []Product
	}{
		{name: "first page", page: 1, limit: 10, expected: collection[0:10]},
		{name: "middle page", page: 2, limit: 10, expected: collection[10:20]},
		{name: "partial last page", page: 3, limit: 10, expected: collection[20:25]},
		{name: "page past the end", page: 4, limit: 10, expected: []Product{}},
		{name: "far past the end", page: 1 << 30, limit: 1 << 30, expected: []Product{}},
		{name: "defaults", page: 0, limit: 0, expected: collection},
		{name: "limit larger than collection", page: 1, limit: 100, expected: collection},
		{name: "single item pages", page: 7, limit: 1, expected: collection[6:7]},
	}

	s, _ := seededStore(t, collection...)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			products, err := s.List(context.Background(), tc.page, tc.limit)
			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expected, products)
		})
	}
}

func Test_FileStore_List_MalformedFile(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s, err := NewFileStore(path)
	require.NoError(t, err)

	// when
	products, err := s.List(context.Background(), 1, 10)

	// then
	require.Error(t, err)
	assert.Nil(t, products)
	assert.Contains(t, err.Error(), "failed to list products")
}

func Test_FileStore_List_MissingFile(t *testing.T) {
	// given
	s, path := seededStore(t)
	require.NoError(t, os.Remove(path))

	// when
	_, err := s.List(context.Background(), 1, 10)

	// then
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_FileStore_Add(t *testing.T) {
	testCases := []struct {
		name       string
		existing   []Product
		expectedID int
	}{
		{name: "empty collection", existing: nil, expectedID: 1},
		{name: "sequential ids", existing: sampleProducts(3), expectedID: 4},
		{name: "gaps use the max", existing: []Product{{ID: 7}, {ID: 2}}, expectedID: 8},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s, _ := seededStore(t, tc.existing...)
			fields := ProductFields{Name: ptr("Widget"), Category: ptr("Tools"), Price: ptr(19.99), Quantity: ptr(10)}

			// when
			created, err := s.Add(context.Background(), fields)

			// then
			require.NoError(t, err)
			expected := Product{ID: tc.expectedID, Name: "Widget", Category: "Tools", Price: 19.99, Quantity: 10}
			assert.Equal(t, expected, *created)

			all, err := s.List(context.Background(), 1, 0)
			require.NoError(t, err)
			require.Len(t, all, len(tc.existing)+1)
			assert.Equal(t, expected, all[len(all)-1])
		})
	}
}

func Test_FileStore_Add_MissingFieldsAreZero(t *testing.T) {
	// given
	s, _ := seededStore(t)

	// when
	created, err := s.Add(context.Background(), ProductFields{Name: ptr("Widget")})

	// then
	require.NoError(t, err)
	assert.Equal(t, Product{ID: 1, Name: "Widget"}, *created)
}

func Test_FileStore_Update(t *testing.T) {
	// given
	s, _ := seededStore(t, sampleProducts(3)...)

	// when
	updated, err := s.Update(context.Background(), 2, ProductFields{Price: ptr(25.0)})

	// then
	require.NoError(t, err)
	expected := Product{ID: 2, Name: "Product", Category: "Tools", Price: 25, Quantity: 2}
	assert.Equal(t, expected, *updated)

	all, err := s.List(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []Product{sampleProducts(3)[0], expected, sampleProducts(3)[2]}, all)
}

func Test_FileStore_Update_NotFound(t *testing.T) {
	// given
	s, path := seededStore(t, sampleProducts(3)...)
	before, err := os.Stat(path)
	require.NoError(t, err)

	// when
	updated, err := s.Update(context.Background(), 42, ProductFields{Name: ptr("Other")})

	// then
	require.ErrorIs(t, err, perrors.ErrProductNotFound)
	assert.Nil(t, updated)
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after), "file must not be rewritten")
}

func Test_FileStore_Delete(t *testing.T) {
	// given
	s, _ := seededStore(t, sampleProducts(3)...)

	// when
	err := s.Delete(context.Background(), 2)

	// then
	require.NoError(t, err)
	all, err := s.List(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []Product{sampleProducts(3)[0], sampleProducts(3)[2]}, all)

	assert.ErrorIs(t, s.Delete(context.Background(), 2), perrors.ErrProductNotFound)
}

func Test_FileStore_Delete_NotFound(t *testing.T) {
	// given
	s, path := seededStore(t, sampleProducts(2)...)
	before, err := os.Stat(path)
	require.NoError(t, err)

	// when
	err = s.Delete(context.Background(), 9)

	// then
	require.ErrorIs(t, err, perrors.ErrProductNotFound)
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after), "file must not be rewritten")
}

func Test_FileStore_DeleteThenAdd(t *testing.T) {
	// given
	s, _ := seededStore(t, sampleProducts(3)...)
	require.NoError(t, s.Delete(context.Background(), 2))

	// when
	created, err := s.Add(context.Background(), ProductFields{})

	// then
	require.NoError(t, err)
	assert.Equal(t, 4, created.ID)
}

func Test_FileStore_RoundTrip(t *testing.T) {
	// given
	collection := []Product{
		{ID: 1, Name: "Widget", Category: "Tools", Price: 19.99, Quantity: 10},
		{ID: 5, Name: "Ñandú", Category: "Juguetes", Price: 0.1, Quantity: 1},
		{ID: 3, Name: "Gadget", Category: "Electronics", Price: 1234567.891, Quantity: 999},
	}
	s, _ := seededStore(t, collection...)

	// when
	products, err := s.List(context.Background(), 1, 0)

	// then
	require.NoError(t, err)
	assert.Equal(t, collection, products)
}

func Test_FileStore_WritesIndentedJSON(t *testing.T) {
	// given
	s, path := seededStore(t)

	// when
	_, err := s.Add(context.Background(), ProductFields{Name: ptr("Widget"), Category: ptr("Tools"), Price: ptr(2.5), Quantity: ptr(3)})

	// then
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	expected := "[\n  {\n    \"id\": 1,\n    \"name\": \"Widget\",\n    \"category\": \"Tools\",\n    \"price\": 2.5,\n    \"quantity\": 3\n  }\n]"
	assert.Equal(t, expected, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}

func Test_FileStore_ConcurrentAdds(t *testing.T) {
	// given
	s, _ := seededStore(t)
	const writers = 20

	// when
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(context.Background(), ProductFields{Name: ptr("Widget")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// then
	all, err := s.List(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, all, writers)
	seen := make(map[int]bool, writers)
	for _, p := range all {
		assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
		seen[p.ID] = true
	}
}

func Test_FileStore_CanceledContext(t *testing.T) {
	// given
	s, _ := seededStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	_, listErr := s.List(ctx, 1, 10)
	_, addErr := s.Add(ctx, ProductFields{})
	_, updateErr := s.Update(ctx, 1, ProductFields{})
	deleteErr := s.Delete(ctx, 1)

	// then
	assert.ErrorIs(t, listErr, context.Canceled)
	assert.ErrorIs(t, addErr, context.Canceled)
	assert.ErrorIs(t, updateErr, context.Canceled)
	assert.ErrorIs(t, deleteErr, context.Canceled)
}

func Test_pageBounds(t *testing.T) {
	testCases := []struct {
		name          string
		page, limit   int
		n             int
		expectedStart int
		expectedEnd   int
	}{
		{name: "empty", page: 1, limit: 10, n: 0, expectedStart: 0, expectedEnd: 0},
		{name: "exact fit", page: 2, limit: 5, n: 10, expectedStart: 5, expectedEnd: 10},
		{name: "negative page", page: -1, limit: 5, n: 10, expectedStart: 0, expectedEnd: 5},
		{name: "huge limit", page: 1, limit: int(^uint(0) >> 1), n: 3, expectedStart: 0, expectedEnd: 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end := pageBounds(tc.page, tc.limit, tc.n)
			assert.Equal(t, tc.expectedStart, start)
			assert.Equal(t, tc.expectedEnd, end)
		})
	}
}
