package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/mailroom/internal/provider"
	"github.com/fieldops/mailroom/internal/storage"
)

// mockQuerier implements storage.Querier for testing.
type mockQuerier struct {
	createQueueItemFn         func(ctx context.Context, arg storage.CreateQueueItemParams) (storage.QueueItem, error)
	claimQueueItemFn          func(ctx context.Context, id uuid.UUID) (storage.QueueItem, error)
	claimDueQueueItemsFn      func(ctx context.Context, limit int32, now time.Time) ([]storage.QueueItem, error)
	markQueueItemSentFn       func(ctx context.Context, arg storage.MarkQueueItemSentParams) error
	requeueQueueItemFn        func(ctx context.Context, arg storage.RequeueQueueItemParams) error
	failQueueItemFn           func(ctx context.Context, id uuid.UUID, lastError string) error
	exhaustQueueItemRetriesFn func(ctx context.Context, id uuid.UUID, retryCount int32, lastError string) error
	sweepStuckQueueItemsFn    func(ctx context.Context, cutoff time.Time) (int64, error)
	insertEmailEventFn        func(ctx context.Context, arg storage.InsertEmailEventParams) (bool, error)
	isSuppressedFn            func(ctx context.Context, tenantID uuid.UUID, address string) (bool, error)
	hasVerifiedDomainFn       func(ctx context.Context, tenantID uuid.UUID, domain string) (bool, error)
	getTemplateFn             func(ctx context.Context, tenantID, id uuid.UUID) (storage.Template, error)
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

func (m *mockQuerier) ClaimQueueItem(ctx context.Context, id uuid.UUID) (storage.QueueItem, error) {
	if m.claimQueueItemFn != nil {
		return m.claimQueueItemFn(ctx, id)
	}
	return storage.QueueItem{}, storage.ErrNotFound
}

func (m *mockQuerier) ClaimDueQueueItems(ctx context.Context, limit int32, now time.Time) ([]storage.QueueItem, error) {
	if m.claimDueQueueItemsFn != nil {
		return m.claimDueQueueItemsFn(ctx, limit, now)
	}
	return nil, nil
}

func (m *mockQuerier) MarkQueueItemSent(ctx context.Context, arg storage.MarkQueueItemSentParams) error {
	if m.markQueueItemSentFn != nil {
		return m.markQueueItemSentFn(ctx, arg)
	}
	return nil
}

func (m *mockQuerier) RequeueQueueItem(ctx context.Context, arg storage.RequeueQueueItemParams) error {
	if m.requeueQueueItemFn != nil {
		return m.requeueQueueItemFn(ctx, arg)
	}
	return nil
}

func (m *mockQuerier) FailQueueItem(ctx context.Context, id uuid.UUID, lastError string) error {
	if m.failQueueItemFn != nil {
		return m.failQueueItemFn(ctx, id, lastError)
	}
	return nil
}

func (m *mockQuerier) ExhaustQueueItemRetries(ctx context.Context, id uuid.UUID, retryCount int32, lastError string) error {
	if m.exhaustQueueItemRetriesFn != nil {
		return m.exhaustQueueItemRetriesFn(ctx, id, retryCount, lastError)
	}
	return nil
}

func (m *mockQuerier) SweepStuckQueueItems(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.sweepStuckQueueItemsFn != nil {
		return m.sweepStuckQueueItemsFn(ctx, cutoff)
	}
	return 0, nil
}

func (m *mockQuerier) InsertEmailEvent(ctx context.Context, arg storage.InsertEmailEventParams) (bool, error) {
	if m.insertEmailEventFn != nil {
		return m.insertEmailEventFn(ctx, arg)
	}
	return true, nil
}

func (m *mockQuerier) IsSuppressed(ctx context.Context, tenantID uuid.UUID, address string) (bool, error) {
	if m.isSuppressedFn != nil {
		return m.isSuppressedFn(ctx, tenantID, address)
	}
	return false, nil
}

func (m *mockQuerier) HasVerifiedDomain(ctx context.Context, tenantID uuid.UUID, domain string) (bool, error) {
	if m.hasVerifiedDomainFn != nil {
		return m.hasVerifiedDomainFn(ctx, tenantID, domain)
	}
	return true, nil
}

func (m *mockQuerier) GetTemplate(ctx context.Context, tenantID, id uuid.UUID) (storage.Template, error) {
	if m.getTemplateFn != nil {
		return m.getTemplateFn(ctx, tenantID, id)
	}
	return storage.Template{}, storage.ErrNotFound
}

// --- Methods not exercised by this package ---

func (m *mockQuerier) GetQueueItem(ctx context.Context, id uuid.UUID) (storage.QueueItem, error) {
	return storage.QueueItem{}, storage.ErrNotFound
}

func (m *mockQuerier) GetQueueItemByProviderMessageID(ctx context.Context, providerMessageID string) (storage.QueueItem, error) {
	return storage.QueueItem{}, storage.ErrNotFound
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

func (m *mockQuerier) CountQueueItemsByStatus(ctx context.Context) ([]storage.StatusCount, error) {
	return nil, nil
}

func (m *mockQuerier) CreateSuppression(ctx context.Context, arg storage.CreateSuppressionParams) (bool, error) {
	return true, nil
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

func (m *mockQuerier) GetTenantByDomain(ctx context.Context, domain string) (storage.Tenant, error) {
	return storage.Tenant{}, storage.ErrNotFound
}

func (m *mockQuerier) CreateTenant(ctx context.Context, arg storage.CreateTenantParams) (storage.Tenant, error) {
	return storage.Tenant{}, nil
}

func (m *mockQuerier) CreateTenantDomain(ctx context.Context, arg storage.CreateTenantDomainParams) (storage.TenantDomain, error) {
	return storage.TenantDomain{}, nil
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

// mockProvider implements provider.Provider for testing.
type mockProvider struct {
	name    string
	sendFn  func(ctx context.Context, msg *provider.Message) (*provider.DeliveryResult, error)
	lastMsg *provider.Message
}

func (m *mockProvider) Send(ctx context.Context, msg *provider.Message) (*provider.DeliveryResult, error) {
	m.lastMsg = msg
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return &provider.DeliveryResult{ProviderMessageID: "mock-" + msg.ID, Timestamp: time.Now()}, nil
}

func (m *mockProvider) GetName() string {
	if m.name != "" {
		return m.name
	}
	return "mock"
}

var _ provider.Provider = (*mockProvider)(nil)
