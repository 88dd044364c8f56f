package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/harukisa/taskmate/internal/middleware"
	"github.com/harukisa/taskmate/internal/port/channel"
)

// signatureHeader is the channel platform's webhook signature header.
const signatureHeader = "X-Line-Signature"

// MountRoutes registers all routes on the given chi router. The webhook
// endpoint sits behind signature verification; everything else is open.
func MountRoutes(r chi.Router, h *Handlers, webhook channel.Webhook) {
	r.With(middleware.WebhookSignature(signatureHeader, webhook.VerifySignature)).
		Post("/webhook", h.HandleWebhook)

	r.Get("/health", h.HandleHealth)
}
