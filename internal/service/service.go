// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/productstore/internal/store"
	"github.com/abgdnv/productstore/pkg/messaging"
	"github.com/abgdnv/productstore/pkg/messaging/events"
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindAll returns the products on the given page.
	// Returns an empty slice if the page holds no products.
	FindAll(ctx context.Context, page, limit int) ([]ProductDto, error)

	// Create adds a new product to the system.
	// Returns error if the product cannot be created.
	Create(ctx context.Context, input ProductInput) (*ProductDto, error)

	// Update overwrites the given fields of an existing product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id int, input ProductInput) (*ProductDto, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id int) error
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
	publisher  messaging.Publisher
	logger     *slog.Logger
}

// NewService creates a new instance of ProductService with the provided repository and event publisher.
func NewService(repo store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repository: repo,
		publisher:  publisher,
		logger:     logger.With("component", "service"),
	}
}

// ProductInput is the request body of create and update. Every field is optional.
type ProductInput struct {
	Name     *string  `json:"name"     validate:"omitempty,min=3,max=20"`
	Category *string  `json:"category" validate:"omitempty,min=3,max=20"`
	Price    *float64 `json:"price"    validate:"omitempty,gt=0"`
	Quantity *int     `json:"quantity" validate:"omitempty,gt=0"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// FindAll retrieves a page of products and returns them as ProductDTOs.
// Returns an empty slice if no products exist or error if the retrieval fails.
func (s *Service) FindAll(ctx context.Context, page, limit int) ([]ProductDto, error) {
	products, err := s.repository.List(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	productDTOs := make([]ProductDto, len(products))

	for i, item := range products {
		productDTOs[i] = *toDto(&item)
	}

	return productDTOs, nil
}

// Create creates a new product and returns it as a ProductDto.
// Returns an error if the product cannot be created.
func (s *Service) Create(ctx context.Context, input ProductInput) (*ProductDto, error) {
	p, err := s.repository.Add(ctx, input.toFields())
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.publish(ctx, events.ProductCreatedEvent{Product: toSnapshot(p), CreatedAt: time.Now().UTC()})
	return toDto(p), nil
}

// Update merges input into the product with the given ID and returns the result as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) Update(ctx context.Context, id int, input ProductInput) (*ProductDto, error) {
	updated, err := s.repository.Update(ctx, id, input.toFields())
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %d: %w", id, err)
	}

	s.publish(ctx, events.ProductUpdatedEvent{Product: toSnapshot(updated), UpdatedAt: time.Now().UTC()})
	return toDto(updated), nil
}

// DeleteByID deletes a product by its ID.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) DeleteByID(ctx context.Context, id int) error {
	if err := s.repository.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product with ID %d: %w", id, err)
	}

	s.publish(ctx, events.ProductDeletedEvent{ProductID: id, DeletedAt: time.Now().UTC()})
	return nil
}

// publish sends event and only logs a failure; the store change has already happened.
func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "subject", event.Subject(), "error", err)
	}
}

func (in ProductInput) toFields() store.ProductFields {
	return store.ProductFields{
		Name:     in.Name,
		Category: in.Category,
		Price:    in.Price,
		Quantity: in.Quantity,
	}
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:       product.ID,
		Name:     product.Name,
		Category: product.Category,
		Price:    product.Price,
		Quantity: product.Quantity,
	}
}

func toSnapshot(product *store.Product) events.ProductSnapshot {
	return events.ProductSnapshot{
		ID:       product.ID,
		Name:     product.Name,
		Category: product.Category,
		Price:    product.Price,
		Quantity: product.Quantity,
	}
}
