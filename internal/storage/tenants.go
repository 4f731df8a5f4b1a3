package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tenantColumns = `id, name, api_key, monthly_send_limit, created_at`

func scanTenant(row rowScanner) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.APIKey, &t.MonthlySendLimit, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, ErrNotFound
	}
	return t, err
}

// GetTenantByAPIKey resolves a tenant from its API key.
func (q *Queries) GetTenantByAPIKey(ctx context.Context, apiKey string) (Tenant, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE api_key = $1`, apiKey)
	return scanTenant(row)
}

// GetTenantByID fetches one tenant.
func (q *Queries) GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// GetTenantByDomain resolves the tenant owning a verified domain. Used by the
// inbound ingress and by webhook tenant resolution for unmatched deliveries.
func (q *Queries) GetTenantByDomain(ctx context.Context, domain string) (Tenant, error) {
	row := q.db.QueryRow(ctx, `
SELECT t.id, t.name, t.api_key, t.monthly_send_limit, t.created_at
FROM tenants t
JOIN tenant_domains d ON d.tenant_id = t.id
WHERE d.domain = $1 AND d.verified`, strings.ToLower(domain))
	return scanTenant(row)
}

// HasVerifiedDomain reports whether the tenant owns the given verified
// sending domain.
func (q *Queries) HasVerifiedDomain(ctx context.Context, tenantID uuid.UUID, domain string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM tenant_domains
	WHERE tenant_id = $1 AND domain = $2 AND verified
)`, tenantID, strings.ToLower(domain)).Scan(&exists)
	return exists, err
}

// CreateTenantParams holds the fields for a new tenant.
type CreateTenantParams struct {
	ID               uuid.UUID
	Name             string
	APIKey           string
	MonthlySendLimit int32
}

// CreateTenant inserts a new tenant.
func (q *Queries) CreateTenant(ctx context.Context, arg CreateTenantParams) (Tenant, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO tenants (id, name, api_key, monthly_send_limit)
VALUES ($1, $2, $3, $4)
RETURNING `+tenantColumns,
		arg.ID, arg.Name, arg.APIKey, arg.MonthlySendLimit)
	return scanTenant(row)
}

// CreateTenantDomainParams holds the fields for a new domain registration.
type CreateTenantDomainParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Domain   string
	Verified bool
}

// CreateTenantDomain registers a domain for a tenant.
func (q *Queries) CreateTenantDomain(ctx context.Context, arg CreateTenantDomainParams) (TenantDomain, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO tenant_domains (id, tenant_id, domain, verified)
VALUES ($1, $2, $3, $4)
RETURNING id, tenant_id, domain, verified, created_at`,
		arg.ID, arg.TenantID, strings.ToLower(arg.Domain), arg.Verified)

	var d TenantDomain
	err := row.Scan(&d.ID, &d.TenantID, &d.Domain, &d.Verified, &d.CreatedAt)
	return d, err
}
