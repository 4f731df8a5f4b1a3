package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// InsertEmailEventParams holds one normalized event for the append-only log.
type InsertEmailEventParams struct {
	ID                uuid.UUID
	TenantID          pgtype.UUID
	QueueItemID       pgtype.UUID
	Vendor            string
	VendorEventID     string
	EventType         string
	ProviderMessageID pgtype.Text
	Recipient         pgtype.Text
	OccurredAt        time.Time
	BounceReason      pgtype.Text
	ClickedURL        pgtype.Text
	RawPayload        []byte
}

const insertEmailEventSQL = `
INSERT INTO email_events (
	id, tenant_id, queue_item_id, vendor, vendor_event_id, event_type,
	provider_message_id, recipient, occurred_at, bounce_reason, clicked_url, raw_payload
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT ON CONSTRAINT email_events_vendor_event_unique DO NOTHING`

// InsertEmailEvent appends one event record. Returns false when an event with
// the same (vendor, vendor_event_id) already exists, which makes webhook
// replays a no-op.
func (q *Queries) InsertEmailEvent(ctx context.Context, arg InsertEmailEventParams) (bool, error) {
	tag, err := q.db.Exec(ctx, insertEmailEventSQL,
		arg.ID, arg.TenantID, arg.QueueItemID, arg.Vendor, arg.VendorEventID, arg.EventType,
		arg.ProviderMessageID, arg.Recipient, arg.OccurredAt, arg.BounceReason, arg.ClickedURL, arg.RawPayload,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
