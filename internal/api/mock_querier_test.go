package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/mailroom/internal/storage"
)

// mockQuerier implements storage.Querier for testing.
type mockQuerier struct {
	createQueueItemFn      func(ctx context.Context, arg storage.CreateQueueItemParams) (storage.QueueItem, error)
	getQueueItemFn         func(ctx context.Context, id uuid.UUID) (storage.QueueItem, error)
	isSuppressedFn         func(ctx context.Context, tenantID uuid.UUID, address string) (bool, error)
	createSuppressionFn    func(ctx context.Context, arg storage.CreateSuppressionParams) (bool, error)
	listSuppressionsFn     func(ctx context.Context, tenantID uuid.UUID) ([]storage.Suppression, error)
	getTenantByAPIKeyFn    func(ctx context.Context, apiKey string) (storage.Tenant, error)
	getTenantByDomainFn    func(ctx context.Context, domain string) (storage.Tenant, error)
	hasVerifiedDomainFn    func(ctx context.Context, tenantID uuid.UUID, domain string) (bool, error)
	insertEmailEventFn     func(ctx context.Context, arg storage.InsertEmailEventParams) (bool, error)
	getByProviderMsgIDFn   func(ctx context.Context, providerMessageID string) (storage.QueueItem, error)
	findContactByEmailFn   func(ctx context.Context, tenantID uuid.UUID, email string) (storage.Contact, error)
	createInboundMessageFn func(ctx context.Context, arg storage.CreateInboundMessageParams) (storage.InboundMessage, error)
}

func (m *mockQuerier) CreateQueueItem(ctx context.Context, arg storage.CreateQueueItemParams) (storage.QueueItem, error) {
	if m.createQueueItemFn != nil {
		return m.createQueueItemFn(ctx, arg)
	}
	return storage.QueueItem{
		ID:          arg.ID,
		TenantID:    arg.TenantID,
		Recipient:   arg.Recipient,
		FromAddress: arg.FromAddress,
		Subject:     arg.Subject,
		Priority:    arg.Priority,
		Status:      storage.QueueStatusPending,
		MaxRetries:  arg.MaxRetries,
		ScheduledAt: arg.ScheduledAt,
	}, nil
}

func (m *mockQuerier) GetQueueItem(ctx context.Context, id uuid.UUID) (storage.QueueItem, error) {
	if m.getQueueItemFn != nil {
		return m.getQueueItemFn(ctx, id)
	}
	return storage.QueueItem{}, storage.ErrNotFound
}

func (m *mockQuerier) GetQueueItemByProviderMessageID(ctx context.Context, providerMessageID string) (storage.QueueItem, error) {
	if m.getByProviderMsgIDFn != nil {
		return m.getByProviderMsgIDFn(ctx, providerMessageID)
	}
	return storage.QueueItem{}, storage.ErrNotFound
}

func (m *mockQuerier) IsSuppressed(ctx context.Context, tenantID uuid.UUID, address string) (bool, error) {
	if m.isSuppressedFn != nil {
		return m.isSuppressedFn(ctx, tenantID, address)
	}
	return false, nil
}

func (m *mockQuerier) CreateSuppression(ctx context.Context, arg storage.CreateSuppressionParams) (bool, error) {
	if m.createSuppressionFn != nil {
		return m.createSuppressionFn(ctx, arg)
	}
	return true, nil
}

func (m *mockQuerier) ListSuppressions(ctx context.Context, tenantID uuid.UUID) ([]storage.Suppression, error) {
	if m.listSuppressionsFn != nil {
		return m.listSuppressionsFn(ctx, tenantID)
	}
	return nil, nil
}

func (m *mockQuerier) GetTenantByAPIKey(ctx context.Context, apiKey string) (storage.Tenant, error) {
	if m.getTenantByAPIKeyFn != nil {
		return m.getTenantByAPIKeyFn(ctx, apiKey)
	}
	return storage.Tenant{}, storage.ErrNotFound
}

func (m *mockQuerier) GetTenantByDomain(ctx context.Context, domain string) (storage.Tenant, error) {
	if m.getTenantByDomainFn != nil {
		return m.getTenantByDomainFn(ctx, domain)
	}
	return storage.Tenant{}, storage.ErrNotFound
}

func (m *mockQuerier) HasVerifiedDomain(ctx context.Context, tenantID uuid.UUID, domain string) (bool, error) {
	if m.hasVerifiedDomainFn != nil {
		return m.hasVerifiedDomainFn(ctx, tenantID, domain)
	}
	return true, nil
}

func (m *mockQuerier) InsertEmailEvent(ctx context.Context, arg storage.InsertEmailEventParams) (bool, error) {
	if m.insertEmailEventFn != nil {
		return m.insertEmailEventFn(ctx, arg)
	}
	return true, nil
}

func (m *mockQuerier) FindContactByEmail(ctx context.Context, tenantID uuid.UUID, email string) (storage.Contact, error) {
	if m.findContactByEmailFn != nil {
		return m.findContactByEmailFn(ctx, tenantID, email)
	}
	return storage.Contact{}, storage.ErrNotFound
}

func (m *mockQuerier) CreateInboundMessage(ctx context.Context, arg storage.CreateInboundMessageParams) (storage.InboundMessage, error) {
	if m.createInboundMessageFn != nil {
		return m.createInboundMessageFn(ctx, arg)
	}
	return storage.InboundMessage{
		ID:          uuid.New(),
		TenantID:    arg.TenantID,
		FromAddress: arg.FromAddress,
		ToAddress:   arg.ToAddress,
		Subject:     arg.Subject,
	}, nil
}

// --- Methods not exercised by this package ---

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

func (m *mockQuerier) FailQueueItem(ctx context.Context, id uuid.UUID, lastError string) error {
	return nil
}

func (m *mockQuerier) ExhaustQueueItemRetries(ctx context.Context, id uuid.UUID, retryCount int32, lastError string) error {
	return nil
}

func (m *mockQuerier) ConfirmQueueItemDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	return nil
}

func (m *mockQuerier) SetQueueItemOpened(ctx context.Context, id uuid.UUID, openedAt time.Time) (bool, error) {
	return true, nil
}

func (m *mockQuerier) SetQueueItemClicked(ctx context.Context, id uuid.UUID, clickedAt time.Time) (bool, error) {
	return true, nil
}

func (m *mockQuerier) SweepStuckQueueItems(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) CountQueueItemsByStatus(ctx context.Context) ([]storage.StatusCount, error) {
	return nil, nil
}

func (m *mockQuerier) GetTenantByID(ctx context.Context, id uuid.UUID) (storage.Tenant, error) {
	return storage.Tenant{}, storage.ErrNotFound
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

func (m *mockQuerier) CreateContact(ctx context.Context, arg storage.CreateContactParams) (storage.Contact, error) {
	return storage.Contact{}, nil
}

var _ storage.Querier = (*mockQuerier)(nil)
