package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// DBTX is the subset of pgx operations used by Queries. Both *pgxpool.Pool
// and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Querier is the storage interface consumed by services and handlers.
type Querier interface {
	// Queue items
	CreateQueueItem(ctx context.Context, arg CreateQueueItemParams) (QueueItem, error)
	GetQueueItem(ctx context.Context, id uuid.UUID) (QueueItem, error)
	GetQueueItemByProviderMessageID(ctx context.Context, providerMessageID string) (QueueItem, error)
	ClaimQueueItem(ctx context.Context, id uuid.UUID) (QueueItem, error)
	ClaimDueQueueItems(ctx context.Context, limit int32, now time.Time) ([]QueueItem, error)
	MarkQueueItemSent(ctx context.Context, arg MarkQueueItemSentParams) error
	RequeueQueueItem(ctx context.Context, arg RequeueQueueItemParams) error
	FailQueueItem(ctx context.Context, id uuid.UUID, lastError string) error
	ExhaustQueueItemRetries(ctx context.Context, id uuid.UUID, retryCount int32, lastError string) error
	ConfirmQueueItemDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error
	SetQueueItemOpened(ctx context.Context, id uuid.UUID, openedAt time.Time) (bool, error)
	SetQueueItemClicked(ctx context.Context, id uuid.UUID, clickedAt time.Time) (bool, error)
	SweepStuckQueueItems(ctx context.Context, cutoff time.Time) (int64, error)
	CountQueueItemsByStatus(ctx context.Context) ([]StatusCount, error)

	// Event log
	InsertEmailEvent(ctx context.Context, arg InsertEmailEventParams) (bool, error)

	// Suppression ledger
	IsSuppressed(ctx context.Context, tenantID uuid.UUID, address string) (bool, error)
	CreateSuppression(ctx context.Context, arg CreateSuppressionParams) (bool, error)
	ListSuppressions(ctx context.Context, tenantID uuid.UUID) ([]Suppression, error)

	// Tenants and domains
	GetTenantByAPIKey(ctx context.Context, apiKey string) (Tenant, error)
	GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error)
	GetTenantByDomain(ctx context.Context, domain string) (Tenant, error)
	HasVerifiedDomain(ctx context.Context, tenantID uuid.UUID, domain string) (bool, error)
	CreateTenant(ctx context.Context, arg CreateTenantParams) (Tenant, error)
	CreateTenantDomain(ctx context.Context, arg CreateTenantDomainParams) (TenantDomain, error)

	// Templates
	GetTemplate(ctx context.Context, tenantID, id uuid.UUID) (Template, error)
	CreateTemplate(ctx context.Context, arg CreateTemplateParams) (Template, error)

	// Contacts and inbound messages
	FindContactByEmail(ctx context.Context, tenantID uuid.UUID, email string) (Contact, error)
	CreateContact(ctx context.Context, arg CreateContactParams) (Contact, error)
	CreateInboundMessage(ctx context.Context, arg CreateInboundMessageParams) (InboundMessage, error)
}

// Queries implements Querier against a pgx pool or transaction.
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to the given pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

var _ Querier = (*Queries)(nil)
