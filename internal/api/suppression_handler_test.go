package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/mailroom/internal/storage"
)

func TestCreateSuppression(t *testing.T) {
	var created *storage.CreateSuppressionParams
	q := authedQuerier()
	q.createSuppressionFn = func(ctx context.Context, arg storage.CreateSuppressionParams) (bool, error) {
		created = &arg
		return true, nil
	}
	router := newTestRouter(q)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/suppressions",
		`{"address":"  Bounced@Example.COM ","reason":"manual"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if created == nil {
		t.Fatal("no suppression created")
	}
	if created.Address != "bounced@example.com" {
		t.Errorf("address = %q, want lowercased trimmed form", created.Address)
	}
	if created.Source != "api" {
		t.Errorf("source = %q, want api", created.Source)
	}
	if created.TenantID != testTenant().ID {
		t.Errorf("tenant_id = %s, want %s", created.TenantID, testTenant().ID)
	}
}

func TestCreateSuppressionDefaultsReason(t *testing.T) {
	var created *storage.CreateSuppressionParams
	q := authedQuerier()
	q.createSuppressionFn = func(ctx context.Context, arg storage.CreateSuppressionParams) (bool, error) {
		created = &arg
		return true, nil
	}
	router := newTestRouter(q)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/suppressions",
		`{"address":"a@example.com"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if created.Reason != storage.SuppressionReasonManual {
		t.Errorf("reason = %q, want manual", created.Reason)
	}
}

func TestCreateSuppressionDuplicate(t *testing.T) {
	q := authedQuerier()
	q.createSuppressionFn = func(ctx context.Context, arg storage.CreateSuppressionParams) (bool, error) {
		return false, nil
	}
	router := newTestRouter(q)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/suppressions",
		`{"address":"a@example.com","reason":"bounce"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["status"] != "already_suppressed" {
		t.Errorf("status = %q, want already_suppressed", resp["status"])
	}
}

func TestCreateSuppressionInvalid(t *testing.T) {
	router := newTestRouter(authedQuerier())

	tests := []struct {
		name string
		body string
	}{
		{"missing address", `{"reason":"manual"}`},
		{"not an email", `{"address":"no-at-sign"}`},
		{"unknown reason", `{"address":"a@example.com","reason":"vibes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/suppressions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestListSuppressions(t *testing.T) {
	q := authedQuerier()
	q.listSuppressionsFn = func(ctx context.Context, tenantID uuid.UUID) ([]storage.Suppression, error) {
		return []storage.Suppression{
			{
				ID:        uuid.New(),
				TenantID:  tenantID,
				Address:   "bounced@example.com",
				Reason:    storage.SuppressionReasonBounce,
				Source:    "sendgrid",
				CreatedAt: time.Now(),
			},
		}, nil
	}
	router := newTestRouter(q)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/suppressions", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Suppressions []suppressionResponse `json:"suppressions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Suppressions) != 1 {
		t.Fatalf("len = %d, want 1", len(resp.Suppressions))
	}
	if resp.Suppressions[0].Address != "bounced@example.com" {
		t.Errorf("address = %q", resp.Suppressions[0].Address)
	}
}

func TestCreateSuppressionStorageError(t *testing.T) {
	q := authedQuerier()
	q.createSuppressionFn = func(ctx context.Context, arg storage.CreateSuppressionParams) (bool, error) {
		return false, errors.New("connection refused")
	}
	router := newTestRouter(q)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/suppressions",
		`{"address":"a@example.com","reason":"bounce"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestListSuppressionsStorageError(t *testing.T) {
	q := authedQuerier()
	q.listSuppressionsFn = func(ctx context.Context, tenantID uuid.UUID) ([]storage.Suppression, error) {
		return nil, errors.New("connection refused")
	}
	router := newTestRouter(q)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/suppressions", "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestListSuppressionsEmpty(t *testing.T) {
	router := newTestRouter(authedQuerier())

	rec := doRequest(t, router, http.MethodGet, "/api/v1/suppressions", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Suppressions []suppressionResponse `json:"suppressions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Suppressions == nil {
		t.Error("suppressions should be an empty array, not null")
	}
}
