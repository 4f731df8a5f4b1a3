package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/mailroom/internal/storage"
)

// mockQuerier implements storage.Querier for testing.
type mockQuerier struct {
	getQueueItemByProviderMessageIDFn func(ctx context.Context, providerMessageID string) (storage.QueueItem, error)
	confirmQueueItemDeliveredFn       func(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error
	failQueueItemFn                   func(ctx context.Context, id uuid.UUID, lastError string) error
	setQueueItemOpenedFn              func(ctx context.Context, id uuid.UUID, openedAt time.Time) (bool, error)
	setQueueItemClickedFn             func(ctx context.Context, id uuid.UUID, clickedAt time.Time) (bool, error)
	insertEmailEventFn                func(ctx context.Context, arg storage.InsertEmailEventParams) (bool, error)
	createSuppressionFn               func(ctx context.Context, arg storage.CreateSuppressionParams) (bool, error)
	getTenantByDomainFn               func(ctx context.Context, domain string) (storage.Tenant, error)
}

func (m *mockQuerier) GetQueueItemByProviderMessageID(ctx context.Context, providerMessageID string) (storage.QueueItem, error) {
	if m.getQueueItemByProviderMessageIDFn != nil {
		return m.getQueueItemByProviderMessageIDFn(ctx, providerMessageID)
	}
	return storage.QueueItem{}, storage.ErrNotFound
}

func (m *mockQuerier) ConfirmQueueItemDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	if m.confirmQueueItemDeliveredFn != nil {
		return m.confirmQueueItemDeliveredFn(ctx, id, deliveredAt)
	}
	return nil
}

func (m *mockQuerier) FailQueueItem(ctx context.Context, id uuid.UUID, lastError string) error {
	if m.failQueueItemFn != nil {
		return m.failQueueItemFn(ctx, id, lastError)
	}
	return nil
}

func (m *mockQuerier) SetQueueItemOpened(ctx context.Context, id uuid.UUID, openedAt time.Time) (bool, error) {
	if m.setQueueItemOpenedFn != nil {
		return m.setQueueItemOpenedFn(ctx, id, openedAt)
	}
	return true, nil
}

func (m *mockQuerier) SetQueueItemClicked(ctx context.Context, id uuid.UUID, clickedAt time.Time) (bool, error) {
	if m.setQueueItemClickedFn != nil {
		return m.setQueueItemClickedFn(ctx, id, clickedAt)
	}
	return true, nil
}

func (m *mockQuerier) InsertEmailEvent(ctx context.Context, arg storage.InsertEmailEventParams) (bool, error) {
	if m.insertEmailEventFn != nil {
		return m.insertEmailEventFn(ctx, arg)
	}
	return true, nil
}

func (m *mockQuerier) CreateSuppression(ctx context.Context, arg storage.CreateSuppressionParams) (bool, error) {
	if m.createSuppressionFn != nil {
		return m.createSuppressionFn(ctx, arg)
	}
	return true, nil
}

func (m *mockQuerier) GetTenantByDomain(ctx context.Context, domain string) (storage.Tenant, error) {
	if m.getTenantByDomainFn != nil {
		return m.getTenantByDomainFn(ctx, domain)
	}
	return storage.Tenant{}, storage.ErrNotFound
}

// --- Methods not exercised by this package ---

func (m *mockQuerier) CreateQueueItem(ctx context.Context, arg storage.CreateQueueItemParams) (storage.QueueItem, error) {
	return storage.QueueItem{}, nil
}

func (m *mockQuerier) GetQueueItem(ctx context.Context, id uuid.UUID) (storage.QueueItem, error) {
	return storage.QueueItem{}, storage.ErrNotFound
}

func (m *mockQuerier) ClaimQueueItem(ctx context.Context, id uuid.UUID) (storage.QueueItem, error) {
	return storage.QueueItem{}, storage.ErrNotFound
}

func (m *mockQuerier) ClaimDueQueueItems(ctx context.Context, limit int32, now time.Time) ([]storage.QueueItem, error) {
	return nil, nil
}

func (m *mockQuerier) MarkQueueItemSent(ctx context.Context, arg storage.MarkQueueItemSentParams) error {
	return nil
}

func (m *mockQuerier) RequeueQueueItem(ctx context.Context, arg storage.RequeueQueueItemParams) error {
	return nil
}

func (m *mockQuerier) ExhaustQueueItemRetries(ctx context.Context, id uuid.UUID, retryCount int32, lastError string) error {
	return nil
}

func (m *mockQuerier) SweepStuckQueueItems(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) CountQueueItemsByStatus(ctx context.Context) ([]storage.StatusCount, error) {
	return nil, nil
}

func (m *mockQuerier) IsSuppressed(ctx context.Context, tenantID uuid.UUID, address string) (bool, error) {
	return false, nil
}

func (m *mockQuerier) ListSuppressions(ctx context.Context, tenantID uuid.UUID) ([]storage.Suppression, error) {
	return nil, nil
}

func (m *mockQuerier) GetTenantByAPIKey(ctx context.Context, apiKey string) (storage.Tenant, error) {
	return storage.Tenant{}, storage.ErrNotFound
}

func (m *mockQuerier) GetTenantByID(ctx context.Context, id uuid.UUID) (storage.Tenant, error) {
	return storage.Tenant{}, storage.ErrNotFound
}

func (m *mockQuerier) HasVerifiedDomain(ctx context.Context, tenantID uuid.UUID, domain string) (bool, error) {
	return false, nil
}

func (m *mockQuerier) CreateTenant(ctx context.Context, arg storage.CreateTenantParams) (storage.Tenant, error) {
	return storage.Tenant{}, nil
}

func (m *mockQuerier) CreateTenantDomain(ctx context.Context, arg storage.CreateTenantDomainParams) (storage.TenantDomain, error) {
	return storage.TenantDomain{}, nil
}

func (m *mockQuerier) GetTemplate(ctx context.Context, tenantID, id uuid.UUID) (storage.Template, error) {
	return storage.Template{}, storage.ErrNotFound
}

func (m *mockQuerier) CreateTemplate(ctx context.Context, arg storage.CreateTemplateParams) (storage.Template, error) {
	return storage.Template{}, nil
}

func (m *mockQuerier) FindContactByEmail(ctx context.Context, tenantID uuid.UUID, email string) (storage.Contact, error) {
	return storage.Contact{}, storage.ErrNotFound
}

func (m *mockQuerier) CreateContact(ctx context.Context, arg storage.CreateContactParams) (storage.Contact, error) {
	return storage.Contact{}, nil
}

func (m *mockQuerier) CreateInboundMessage(ctx context.Context, arg storage.CreateInboundMessageParams) (storage.InboundMessage, error) {
	return storage.InboundMessage{}, nil
}

var _ storage.Querier = (*mockQuerier)(nil)
