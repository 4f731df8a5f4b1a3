package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// FindContactByEmail resolves a contact by address within a tenant.
// Used for best-effort sender matching on inbound mail.
func (q *Queries) FindContactByEmail(ctx context.Context, tenantID uuid.UUID, email string) (Contact, error) {
	row := q.db.QueryRow(ctx, `
SELECT id, tenant_id, email, name, created_at
FROM contacts
WHERE tenant_id = $1 AND email = $2`,
		tenantID, normalizeAddress(email))

	var c Contact
	err := row.Scan(&c.ID, &c.TenantID, &c.Email, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return c, err
}

// CreateContactParams holds the fields for a new contact.
type CreateContactParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Email    string
	Name     string
}

// CreateContact inserts a new contact.
func (q *Queries) CreateContact(ctx context.Context, arg CreateContactParams) (Contact, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO contacts (id, tenant_id, email, name)
VALUES ($1, $2, $3, $4)
RETURNING id, tenant_id, email, name, created_at`,
		arg.ID, arg.TenantID, normalizeAddress(arg.Email), arg.Name)

	var c Contact
	err := row.Scan(&c.ID, &c.TenantID, &c.Email, &c.Name, &c.CreatedAt)
	return c, err
}

// CreateInboundMessageParams holds one stored inbound message.
type CreateInboundMessageParams struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	ContactID      pgtype.UUID
	FromAddress    string
	ToAddress      string
	Subject        string
	HTMLBody       pgtype.Text
	TextBody       pgtype.Text
	Headers        []byte
	AttachmentKeys []byte
}

// CreateInboundMessage stores one received email.
func (q *Queries) CreateInboundMessage(ctx context.Context, arg CreateInboundMessageParams) (InboundMessage, error) {
	row := q.db.QueryRow(ctx, `
INSERT INTO inbound_messages (
	id, tenant_id, contact_id, from_address, to_address, subject,
	html_body, text_body, headers, attachment_keys
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, tenant_id, contact_id, from_address, to_address, subject,
	html_body, text_body, headers, attachment_keys, created_at`,
		arg.ID, arg.TenantID, arg.ContactID, arg.FromAddress, arg.ToAddress, arg.Subject,
		arg.HTMLBody, arg.TextBody, arg.Headers, arg.AttachmentKeys)

	var m InboundMessage
	err := row.Scan(&m.ID, &m.TenantID, &m.ContactID, &m.FromAddress, &m.ToAddress, &m.Subject,
		&m.HTMLBody, &m.TextBody, &m.Headers, &m.AttachmentKeys, &m.CreatedAt)
	return m, err
}
