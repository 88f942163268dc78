package giftcard_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-storefront/internal/auth"
	"ms-storefront/internal/giftcard"
	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	GiftCardService *giftcard.Service
	Logger          *logger.Logger
}

func NewHandler(service *giftcard.Service, log *logger.Logger) *Handler {
	return &Handler{GiftCardService: service, Logger: log}
}

// Issue creates a new gift card.
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}

	var req models.IssueGiftCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	card, err := h.GiftCardService.Issue(r.Context(), req)
	if err != nil {
		if errors.Is(err, giftcard.ErrInvalidAmount) {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid gift card amount", err.Error()))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Issue gift card: %v", err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to issue gift card", "internal error"))
		return
	}

	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Gift card issued", card))
}

// Redeem consumes a gift card and credits points to the caller.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, utils.ErrorResponse("Unauthorized", "no authenticated user"))
		return
	}

	var req models.RedeemGiftCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	response, err := h.GiftCardService.Redeem(r.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, giftcard.ErrNotFound):
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Gift card not found", req.Code))
		case errors.Is(err, giftcard.ErrExpired):
			writeJSON(w, http.StatusGone, utils.ErrorResponse("Gift card has expired", req.Code))
		case errors.Is(err, giftcard.ErrAlreadyRedeemed):
			writeJSON(w, http.StatusConflict, utils.ErrorResponse("Gift card has already been redeemed", req.Code))
		case errors.Is(err, giftcard.ErrRedemptionInProgress):
			writeJSON(w, http.StatusConflict, utils.ErrorResponse("Redemption already in progress", req.Code))
		default:
			h.Logger.Error("API", fmt.Sprintf("Redeem %s: %v", req.Code, err))
			writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to redeem gift card", "internal error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Gift card redeemed", response))
}

// Get returns a gift card's balance and status.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	card, err := h.GiftCardService.Get(r.Context(), code)
	if err != nil {
		if errors.Is(err, giftcard.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Gift card not found", code))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Get gift card %s: %v", code, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to load gift card", "internal error"))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Gift card", card))
}

// QRCode renders the card as a PNG QR code.
func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	png, err := h.GiftCardService.QRCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, giftcard.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Gift card not found", code))
			return
		}
		h.Logger.Error("API", fmt.Sprintf("QR for gift card %s: %v", code, err))
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to render QR code", "internal error"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func writeJSON(w http.ResponseWriter, status int, body utils.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
