package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-storefront/internal/auth"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/order"
	"ms-storefront/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
}

func NewHandler(service *order.OrderService, log *logger.Logger) *Handler {
	return &Handler{OrderService: service, Logger: log}
}

// Checkout prices the cart, creates the order and charges the card.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	response, err := h.OrderService.Checkout(r.Context(), userID, req)
	if err != nil {
		status, message := checkoutErrorStatus(err)
		h.Logger.Error("API", fmt.Sprintf("Checkout for %s: %v", userID, err))
		writeJSON(w, status, utils.ErrorResponse(message, err.Error()))
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Order placed", response))
}

// GetOrder returns one of the caller's orders with its items.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}
	orderID := chi.URLParam(r, "id")

	ord, items, err := h.OrderService.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderID))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("GetOrder %s: %v", orderID, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load order", "internal error"))
		return
	}
	if ord.UserID != userID {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderID))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Order", models.CheckoutResponse{Order: *ord, Items: items}))
}

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}

	orders, err := h.OrderService.ListUserOrders(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListOrders for %s: %v", userID, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load orders", "internal error"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Orders", orders))
}

// UpdateStatus moves an order along the pipeline (staff endpoint).
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var update models.OrderStatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	ord, err := h.OrderService.UpdateStatus(r.Context(), orderID, update.Status)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderID))
		case errors.Is(err, order.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, utils.ErrorResponse("Invalid status transition", err.Error()))
		default:
			h.Logger.Error("API", fmt.Sprintf("UpdateStatus %s: %v", orderID, err))
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to update order", "internal error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Order updated", ord))
}

// Cancel cancels one of the caller's own orders, if it has not left
// the store yet.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}
	orderID := chi.URLParam(r, "id")

	ord, err := h.OrderService.Cancel(r.Context(), orderID, userID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderID))
		case errors.Is(err, order.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, utils.ErrorResponse("Order can no longer be cancelled", err.Error()))
		default:
			h.Logger.Error("API", fmt.Sprintf("Cancel %s: %v", orderID, err))
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to cancel order", "internal error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Order cancelled", ord))
}

func checkoutErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrEmptyCart), errors.Is(err, order.ErrInvalidQuantity):
		return http.StatusBadRequest, "Invalid cart"
	case errors.Is(err, order.ErrProductNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, order.ErrProductOutOfStock):
		return http.StatusConflict, "Product out of stock"
	default:
		return http.StatusInternalServerError, "Checkout failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
