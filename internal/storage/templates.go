package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const templateColumns = `id, tenant_id, name, subject, html_body, text_body, created_at, updated_at`

func scanTemplate(row rowScanner) (Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Subject, &t.HTMLBody, &t.TextBody, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return t, err
}

// GetTemplate fetches one template scoped to a tenant.
func (q *Queries) GetTemplate(ctx context.Context, tenantID, id uuid.UUID) (Template, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return scanTemplate(row)
}

// CreateTemplateParams holds the fields for a new template.
type CreateTemplateParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Subject  string
	HTMLBody string
	TextBody string
}

// CreateTemplate inserts a new template.
func (q *Queries) CreateTemplate(ctx context.Context, arg CreateTemplateParams) (Template, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO templates (id, tenant_id, name, subject, html_body, text_body)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+templateColumns,
		arg.ID, arg.TenantID, arg.Name, arg.Subject, arg.HTMLBody, arg.TextBody)
	return scanTemplate(row)
}
