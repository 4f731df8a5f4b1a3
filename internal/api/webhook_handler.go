package api

import (
	"io"
	"net/http"

	"github.com/fieldops/mailroom/internal/logger"
	"github.com/fieldops/mailroom/internal/webhook"
)

const maxWebhookBodySize = 4 << 20 // 4 MiB

// WebhookHandler receives provider event callbacks. Both SendGrid and
// Resend post to the same endpoint; the payload shape identifies the vendor.
type WebhookHandler struct {
	normalizer *webhook.Normalizer
}

func NewWebhookHandler(normalizer *webhook.Normalizer) *WebhookHandler {
	return &WebhookHandler{normalizer: normalizer}
}

// Receive handles POST /api/v1/webhooks/email.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	persisted, err := h.normalizer.ProcessPayload(r.Context(), body)
	if err != nil {
		log.Warn().Err(err).Msg("webhook payload rejected")
		respondError(w, http.StatusBadRequest, "unrecognized webhook payload")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"processed": persisted})
}
