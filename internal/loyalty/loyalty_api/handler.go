package loyalty_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ms-storefront/internal/auth"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/loyalty"
	"ms-storefront/internal/utils"
)

type Handler struct {
	LoyaltyService *loyalty.Service
	Logger         *logger.Logger
}

func NewHandler(service *loyalty.Service, log *logger.Logger) *Handler {
	return &Handler{LoyaltyService: service, Logger: log}
}

// GetStatus returns the caller's tier, qualifying order count and the
// distance to the next tier.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}

	status, err := h.LoyaltyService.Status(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetStatus: %v", err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load loyalty status", "internal error"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Loyalty status", status))
}

// ListNotifications returns the caller's notifications, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}

	notifications, err := h.LoyaltyService.Notifications(r.Context(), userID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListNotifications: %v", err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load notifications", "internal error"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Notifications", notifications))
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
