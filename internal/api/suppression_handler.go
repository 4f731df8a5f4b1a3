package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/mailroom/internal/auth"
	"github.com/fieldops/mailroom/internal/logger"
	"github.com/fieldops/mailroom/internal/storage"
)

// SuppressionHandler serves the per-tenant suppression ledger.
type SuppressionHandler struct {
	queries storage.Querier
}

func NewSuppressionHandler(queries storage.Querier) *SuppressionHandler {
	return &SuppressionHandler{queries: queries}
}

type suppressionResponse struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Reason    string    `json:"reason"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// List handles GET /api/v1/suppressions.
func (h *SuppressionHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.queries.ListSuppressions(r.Context(), tenant.ID)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("list suppressions failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]suppressionResponse, 0, len(entries))
	for _, s := range entries {
		out = append(out, suppressionResponse{
			ID:        s.ID.String(),
			Address:   s.Address,
			Reason:    s.Reason,
			Source:    s.Source,
			CreatedAt: s.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"suppressions": out})
}

type createSuppressionRequest struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

var validSuppressionReasons = map[string]bool{
	storage.SuppressionReasonBounce:      true,
	storage.SuppressionReasonComplaint:   true,
	storage.SuppressionReasonManual:      true,
	storage.SuppressionReasonUnsubscribe: true,
}

// Create handles POST /api/v1/suppressions.
func (h *SuppressionHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := auth.TenantFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createSuppressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	address := strings.ToLower(strings.TrimSpace(req.Address))
	if address == "" || !strings.Contains(address, "@") {
		respondError(w, http.StatusBadRequest, "address must be a valid email")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = storage.SuppressionReasonManual
	}
	if !validSuppressionReasons[reason] {
		respondError(w, http.StatusBadRequest, "invalid suppression reason")
		return
	}

	created, err := h.queries.CreateSuppression(r.Context(), storage.CreateSuppressionParams{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		Address:  address,
		Reason:   reason,
		Source:   "api",
	})
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("create suppression failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !created {
		respondJSON(w, http.StatusOK, map[string]string{"status": "already_suppressed"})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "suppressed"})
}
