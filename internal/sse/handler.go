package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-storefront/internal/auth"
	"ms-storefront/internal/logger"
)

type Handler struct {
	Emitter *OrderEventEmitter
	Logger  *logger.Logger
}

func NewHandler(emitter *OrderEventEmitter, log *logger.Logger) *Handler {
	return &Handler{Emitter: emitter, Logger: log}
}

// resolveUser identifies the caller. The stream endpoint sits outside
// the OIDC middleware because EventSource cannot set headers, so the
// token may arrive as an access_token query parameter instead.
func (h *Handler) resolveUser(r *http.Request) string {
	if userID := auth.UserID(r.Context()); userID != "" {
		return userID
	}

	token := r.URL.Query().Get("access_token")
	if token == "" {
		var err error
		token, err = auth.ExtractTokenFromRequest(r)
		if err != nil {
			return ""
		}
	}

	userID, err := auth.ExtractUserIDFromJWT(token)
	if err != nil {
		h.Logger.Warn("SSE", fmt.Sprintf("rejected stream client: %v", err))
		return ""
	}
	return userID
}

// StreamOrders streams the caller's order status changes as
// server-sent events until the client disconnects.
func (h *Handler) StreamOrders(w http.ResponseWriter, r *http.Request) {
	userID := h.resolveUser(r)
	if userID == "" {
		http.Error(w, "no authenticated user", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := h.Emitter.Subscribe(r.Context(), userID)
	h.Logger.Info("SSE", fmt.Sprintf("user %s connected to order stream", userID))

	// Heartbeat keeps proxies from closing idle streams
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			h.Logger.Info("SSE", fmt.Sprintf("user %s disconnected from order stream", userID))
			return
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: order\ndata: %s\n\n", data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
