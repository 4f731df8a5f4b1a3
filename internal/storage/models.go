package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// QueueStatus is the lifecycle state of a queue item.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusSent       QueueStatus = "sent"
	QueueStatusFailed     QueueStatus = "failed"
)

// Suppression reasons.
const (
	SuppressionReasonBounce      = "bounce"
	SuppressionReasonComplaint   = "complaint"
	SuppressionReasonManual      = "manual"
	SuppressionReasonUnsubscribe = "unsubscribe"
)

// QueueItem is one outbound email awaiting or having completed delivery.
// Rows are never deleted; terminal items are retained for audit.
type QueueItem struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	Recipient         string
	FromAddress       string
	FromName          pgtype.Text
	ReplyTo           pgtype.Text
	Subject           string
	HTMLBody          pgtype.Text
	TextBody          pgtype.Text
	TemplateID        pgtype.UUID
	TemplateVars      []byte
	Tags              []byte
	Priority          int32
	Status            QueueStatus
	RetryCount        int32
	MaxRetries        int32
	ScheduledAt       time.Time
	NextRetryAt       pgtype.Timestamptz
	LastError         pgtype.Text
	Provider          pgtype.Text
	ProviderMessageID pgtype.Text
	SentAt            pgtype.Timestamptz
	DeliveredAt       pgtype.Timestamptz
	OpenedAt          pgtype.Timestamptz
	ClickedAt         pgtype.Timestamptz
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EmailEvent is an append-only normalized delivery or engagement event.
// (Vendor, VendorEventID) is unique; replays are no-ops.
type EmailEvent struct {
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
	CreatedAt         time.Time
}

// Suppression is a permanent per-tenant send block for one address.
type Suppression struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Address   string
	Reason    string
	Source    string
	CreatedAt time.Time
}

// Tenant is one customer of the platform, authenticated by API key.
type Tenant struct {
	ID               uuid.UUID
	Name             string
	APIKey           string
	MonthlySendLimit int32
	CreatedAt        time.Time
}

// TenantDomain is one entry in the verified sending-domain registry.
type TenantDomain struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Domain    string
	Verified  bool
	CreatedAt time.Time
}

// Template is a tenant-scoped rendering definition with {{variable}}
// placeholders in subject, html, and text.
type Template struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Subject   string
	HTMLBody  string
	TextBody  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contact is an address book entry used for inbound sender matching.
type Contact struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

// InboundMessage is a received email stored by the inbound ingress.
type InboundMessage struct {
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
	CreatedAt      time.Time
}

// StatusCount is one row of the queue depth aggregation.
type StatusCount struct {
	Status QueueStatus
	Count  int64
}
