// Package rest provides HTTP handlers for product-related operations.
package rest

import (
	"errors"
	"log/slog"
	"net/http"

	perrors "github.com/abgdnv/productstore/internal/errors"
	"github.com/abgdnv/productstore/internal/service"
	"github.com/abgdnv/productstore/internal/validation"
	"github.com/abgdnv/productstore/pkg/web"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPage  = 1
	defaultLimit = 10

	msgListed         = "¡Se cargaron los productos con éxito!"
	msgCreated        = "¡Se creó el producto con éxito!"
	msgUpdated        = "¡Se actualizó exitosamente el producto!"
	msgDeleted        = "¡Se ha eliminado el producto con éxito!"
	msgNotFound       = "Product not found"
	msgListFailed     = "An error occurred while fetching products"
	msgCreateFailed   = "An error occurred while creating the product"
	msgUpdateFailed   = "An error occurred while updating the product"
	msgDeleteFailed   = "Ha ocurrido un error al tratar de eliminar el producto"
	msgMissingPayload = "Request body was not validated"
)

// ListResponse is the body of a successful list call. Total is the number of products on this page.
type ListResponse struct {
	Page     int                  `json:"page"`
	Limit    int                  `json:"limit"`
	Total    int                  `json:"total"`
	Products []service.ProductDto `json:"products"`
	Message  string               `json:"message"`
}

// ProductResponse is the body of a successful create or update call.
type ProductResponse struct {
	Product *service.ProductDto `json:"product"`
	Message string              `json:"message"`
}

type Handler struct {
	service  service.ProductService
	validate *validation.Validator
	logger   *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service service.ProductService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validation.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the product service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	validateProduct := validation.Body[service.ProductInput](h.validate, h.logger)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.With(validateProduct).Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.With(validateProduct).Put("/", h.Update)
			r.Delete("/", h.DeleteByID)
		})
	})

	r.Get("/healthz", h.HealthCheck)
}

// FindAll returns one page of products.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	page := web.QueryIntGtOrDefault(r, "page", 0, defaultPage)
	limit := web.QueryIntGtOrDefault(r, "limit", 0, defaultLimit)

	h.logger.DebugContext(r.Context(), "Received request to find all products", "page", page, "limit", limit)
	list, err := h.service.FindAll(r.Context(), page, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving product list", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, msgListFailed)
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, h.logger, http.StatusOK, ListResponse{
		Page:     page,
		Limit:    limit,
		Total:    len(list),
		Products: list,
		Message:  msgListed,
	})
}

// Create handles the creation of a new product from an already validated body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := validation.PayloadFrom[service.ProductInput](r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "Create called without a validated payload")
		web.RespondError(w, h.logger, http.StatusInternalServerError, msgMissingPayload)
		return
	}

	newProduct, err := h.service.Create(r.Context(), *input)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error creating product", "error", err)
		web.RespondMessage(w, h.logger, http.StatusInternalServerError, msgCreateFailed)
		return
	}
	h.logger.InfoContext(r.Context(), "Product created successfully", "ID", newProduct.ID, "Name", newProduct.Name)
	web.RespondJSON(w, h.logger, http.StatusCreated, ProductResponse{Product: newProduct, Message: msgCreated})
}

// Update merges the validated body into an existing product.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseIntID(r)
	if !ok {
		h.logger.WarnContext(r.Context(), "Invalid product ID", "ID", r.PathValue("id"))
		web.RespondMessage(w, h.logger, http.StatusNotFound, msgNotFound)
		return
	}
	input, ok := validation.PayloadFrom[service.ProductInput](r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "Update called without a validated payload")
		web.RespondError(w, h.logger, http.StatusInternalServerError, msgMissingPayload)
		return
	}

	h.logger.DebugContext(r.Context(), "Received request to update product", "ID", id)
	updated, err := h.service.Update(r.Context(), id, *input)
	if err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			h.logger.WarnContext(r.Context(), "Product not found for update", "ID", id)
			web.RespondMessage(w, h.logger, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "Error updating product", "ID", id, "error", err)
		web.RespondMessage(w, h.logger, http.StatusInternalServerError, msgUpdateFailed)
		return
	}
	h.logger.InfoContext(r.Context(), "Product updated successfully", "ID", updated.ID, "Name", updated.Name)
	web.RespondJSON(w, h.logger, http.StatusOK, ProductResponse{Product: updated, Message: msgUpdated})
}

// DeleteByID deletes a product by its ID.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseIntID(r)
	if !ok {
		h.logger.WarnContext(r.Context(), "Invalid product ID", "ID", r.PathValue("id"))
		web.RespondMessage(w, h.logger, http.StatusNotFound, msgNotFound)
		return
	}

	h.logger.DebugContext(r.Context(), "Received request to delete product", "ID", id)
	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, perrors.ErrProductNotFound) {
			h.logger.WarnContext(r.Context(), "Product not found for deletion", "ID", id)
			web.RespondMessage(w, h.logger, http.StatusNotFound, msgNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "Error deleting product", "ID", id, "error", err)
		web.RespondMessage(w, h.logger, http.StatusInternalServerError, msgDeleteFailed)
		return
	}
	h.logger.InfoContext(r.Context(), "Product deleted successfully", "ID", id)
	web.RespondMessage(w, h.logger, http.StatusOK, msgDeleted)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
