package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// IsSuppressed reports whether the (tenant, address) pair is blocked from
// receiving mail. Addresses are compared case-insensitively.
func (q *Queries) IsSuppressed(ctx context.Context, tenantID uuid.UUID, address string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM email_suppressions
	WHERE tenant_id = $1 AND address = $2
)`, tenantID, normalizeAddress(address)).Scan(&exists)
	return exists, err
}

// CreateSuppressionParams holds one new suppression entry.
type CreateSuppressionParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Address  string
	Reason   string
	Source   string
}

// CreateSuppression adds a suppression entry, idempotent on the unique
// (tenant, address) key. Returns false when the pair was already suppressed.
func (q *Queries) CreateSuppression(ctx context.Context, arg CreateSuppressionParams) (bool, error) {
	tag, err := q.db.Exec(ctx, `
INSERT INTO email_suppressions (id, tenant_id, address, reason, source)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT ON CONSTRAINT email_suppressions_tenant_address_unique DO NOTHING`,
		arg.ID, arg.TenantID, normalizeAddress(arg.Address), arg.Reason, arg.Source)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListSuppressions returns all suppression entries for a tenant, newest first.
func (q *Queries) ListSuppressions(ctx context.Context, tenantID uuid.UUID) ([]Suppression, error) {
	rows, err := q.db.Query(ctx, `
SELECT id, tenant_id, address, reason, source, created_at
FROM email_suppressions
WHERE tenant_id = $1
ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Suppression
	for rows.Next() {
		var s Suppression
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Address, &s.Reason, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, s)
	}
	return entries, rows.Err()
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
