package catalog_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-storefront/internal/auth"
	"ms-storefront/internal/catalog"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	CatalogService *catalog.Service
	Logger         *logger.Logger
}

func NewHandler(service *catalog.Service, log *logger.Logger) *Handler {
	return &Handler{CatalogService: service, Logger: log}
}

// Menu returns the full product list.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	products, err := h.CatalogService.Menu(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Menu: %v", err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load products", "internal error"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Products", products))
}

// GetProduct returns one product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	product, err := h.CatalogService.Get(r.Context(), productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Product not found", productID))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetProduct %s: %v", productID, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load product", "internal error"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Product", product))
}

// QuoteProduct returns the caller's price for a product right now,
// happy hour included.
func (h *Handler) QuoteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	userID := auth.UserID(r.Context())

	quote, err := h.CatalogService.Quote(r.Context(), productID, userID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Product not found", productID))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("QuoteProduct %s: %v", productID, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to quote product", "internal error"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Product quote", quote))
}

// CreateProduct adds a product to the catalog (staff endpoint).
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	if product.Name == "" || product.Price <= 0 {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid product", "name and a positive price are required"))
		return
	}

	created, err := h.CatalogService.Create(r.Context(), product)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateProduct: %v", err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to create product", "internal error"))
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Product created", created))
}

// UpdateProduct replaces a product (staff endpoint).
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	product.ID = productID

	if err := h.CatalogService.Update(r.Context(), product); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Product not found", productID))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("UpdateProduct %s: %v", productID, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to update product", "internal error"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Product updated", product))
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
