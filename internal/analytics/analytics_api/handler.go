package analytics_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"ms-storefront/internal/analytics"
	"ms-storefront/internal/auth"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the dashboard endpoints. Every route requires
// an admin user.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/revenue", h.RevenueSummary)
		r.Get("/tiers", h.TierDistribution)
		r.Get("/giftcards", h.GiftCardLiability)
		r.Get("/products/top", h.TopProducts)
	})
}

func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == "" {
			sendJSONResponse(w, http.StatusUnauthorized, utils.APIResponse{
				Success: false,
				Error:   "no authenticated user",
			})
			return
		}

		isAdmin, err := h.Service.IsAdmin(r.Context(), userID)
		if err != nil {
			h.Logger.Error("ANALYTICS", fmt.Sprintf("admin lookup failed for %s: %v", userID, err))
			sendJSONResponse(w, http.StatusInternalServerError, utils.APIResponse{
				Success: false,
				Error:   "failed to verify access",
			})
			return
		}
		if !isAdmin {
			h.Logger.Warn("ANALYTICS", fmt.Sprintf("user %s denied dashboard access", userID))
			sendJSONResponse(w, http.StatusForbidden, utils.APIResponse{
				Success: false,
				Error:   "admin access required",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) RevenueSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.GetRevenueSummary(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("revenue summary failed: %v", err))
		sendJSONResponse(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Error:   "failed to load revenue summary",
		})
		return
	}

	sendJSONResponse(w, http.StatusOK, utils.APIResponse{Success: true, Data: summary})
}

func (h *Handler) TierDistribution(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.Service.GetTierDistribution(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("tier distribution failed: %v", err))
		sendJSONResponse(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Error:   "failed to load tier distribution",
		})
		return
	}

	sendJSONResponse(w, http.StatusOK, utils.APIResponse{Success: true, Data: tiers})
}

func (h *Handler) GiftCardLiability(w http.ResponseWriter, r *http.Request) {
	liability, err := h.Service.GetGiftCardLiability(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("gift card liability failed: %v", err))
		sendJSONResponse(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Error:   "failed to load gift card liability",
		})
		return
	}

	sendJSONResponse(w, http.StatusOK, utils.APIResponse{Success: true, Data: liability})
}

func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 50 {
			limit = parsed
		}
	}

	products, err := h.Service.GetTopProducts(r.Context(), limit)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("top products failed: %v", err))
		sendJSONResponse(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Error:   "failed to load top products",
		})
		return
	}

	sendJSONResponse(w, http.StatusOK, utils.APIResponse{Success: true, Data: products})
}

func sendJSONResponse(w http.ResponseWriter, status int, payload utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
