// Package http provides the webhook endpoint and HTTP middleware.
package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/harukisa/taskmate/internal/port/channel"
	"github.com/harukisa/taskmate/internal/service"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Handlers holds the dependencies of the HTTP endpoints.
type Handlers struct {
	Webhook    channel.Webhook
	Dispatcher *service.Dispatcher
}

// HandleWebhook accepts a channel webhook delivery. The signature has
// already been verified by middleware. Events are handed to the dispatcher
// and the delivery is acknowledged immediately; the platform redelivers on
// non-2xx, so decode problems past signature verification still return 200.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	events, err := h.Webhook.DecodeEvents(body)
	if err != nil {
		slog.Warn("webhook body did not decode", "error", err)
		writeText(w, http.StatusOK, "OK")
		return
	}

	// Conversations outlive the delivery request; detach from its cancelation.
	h.Dispatcher.Dispatch(context.WithoutCancel(r.Context()), events)

	writeText(w, http.StatusOK, "OK")
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
