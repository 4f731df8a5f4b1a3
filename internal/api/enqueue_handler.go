package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fieldops/mailroom/internal/auth"
	"github.com/fieldops/mailroom/internal/delivery"
	"github.com/fieldops/mailroom/internal/logger"
	"github.com/fieldops/mailroom/internal/storage"
)

const maxEnqueueBodySize = 1 << 20 // 1 MiB

// EnqueueHandler serves email submission and status polling.
type EnqueueHandler struct {
	service *delivery.EnqueueService
	queries storage.Querier
}

func NewEnqueueHandler(service *delivery.EnqueueService, queries storage.Querier) *EnqueueHandler {
	return &EnqueueHandler{service: service, queries: queries}
}

// Enqueue handles POST /api/v1/emails.
func (h *EnqueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req delivery.EnqueueRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEnqueueBodySize))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Enqueue(r.Context(), tenant, &req)
	if err != nil {
		switch {
		case errors.Is(err, delivery.ErrValidation), errors.Is(err, delivery.ErrTemplateNotFound):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, delivery.ErrUnverifiedDomain):
			respondError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, delivery.ErrSuppressed):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, delivery.ErrQuotaExceeded):
			respondError(w, http.StatusTooManyRequests, err.Error())
		default:
			log.Error().Err(err).Str("tenant_id", tenant.ID.String()).Msg("enqueue failed")
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusAccepted, result)
}

// queueItemResponse is the external view of a queue item.
type queueItemResponse struct {
	ID                string     `json:"id"`
	Recipient         string     `json:"to"`
	From              string     `json:"from"`
	Subject           string     `json:"subject"`
	Status            string     `json:"status"`
	Priority          int32      `json:"priority"`
	RetryCount        int32      `json:"retry_count"`
	LastError         string     `json:"last_error,omitempty"`
	Provider          string     `json:"provider,omitempty"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	ScheduledAt       time.Time  `json:"scheduled_at"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	OpenedAt          *time.Time `json:"opened_at,omitempty"`
	ClickedAt         *time.Time `json:"clicked_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// GetEmail handles GET /api/v1/emails/{id}.
func (h *EnqueueHandler) GetEmail(w http.ResponseWriter, r *http.Request) {
	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	item, err := h.queries.GetQueueItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "email not found")
			return
		}
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("get queue item failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if item.TenantID != tenant.ID {
		respondError(w, http.StatusNotFound, "email not found")
		return
	}

	respondJSON(w, http.StatusOK, toQueueItemResponse(item))
}

func toQueueItemResponse(item storage.QueueItem) queueItemResponse {
	return queueItemResponse{
		ID:                item.ID.String(),
		Recipient:         item.Recipient,
		From:              item.FromAddress,
		Subject:           item.Subject,
		Status:            string(item.Status),
		Priority:          item.Priority,
		RetryCount:        item.RetryCount,
		LastError:         item.LastError.String,
		Provider:          item.Provider.String,
		ProviderMessageID: item.ProviderMessageID.String,
		ScheduledAt:       item.ScheduledAt,
		SentAt:            timePtr(item.SentAt),
		DeliveredAt:       timePtr(item.DeliveredAt),
		OpenedAt:          timePtr(item.OpenedAt),
		ClickedAt:         timePtr(item.ClickedAt),
		CreatedAt:         item.CreatedAt,
	}
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
