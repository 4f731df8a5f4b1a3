// Package auth provides tenant API-key authentication and per-tenant send
// quota enforcement.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/fieldops/mailroom/internal/storage"
)

type contextKey string

const tenantKey contextKey = "tenant"

// TenantFromContext retrieves the authenticated tenant from the request
// context. The second return value is false when no tenant is set.
func TenantFromContext(ctx context.Context) (storage.Tenant, bool) {
	t, ok := ctx.Value(tenantKey).(storage.Tenant)
	return t, ok
}

// withTenant stores the tenant in the request context.
func withTenant(ctx context.Context, t storage.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// TenantLookupFunc resolves a tenant from an API key.
type TenantLookupFunc func(ctx context.Context, apiKey string) (storage.Tenant, error)

// BearerAuth returns an HTTP middleware that validates Bearer token
// authentication. It extracts the API key from the Authorization header and
// looks up the tenant. On success, the tenant is stored in the request context.
func BearerAuth(lookup TenantLookupFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization format, expected Bearer <token>")
				return
			}

			apiKey := parts[1]
			if apiKey == "" {
				unauthorized(w, "empty API key")
				return
			}

			tenant, err := lookup(r.Context(), apiKey)
			if err != nil {
				unauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(withTenant(r.Context(), tenant)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
