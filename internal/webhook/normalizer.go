package webhook

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fieldops/mailroom/internal/logger"
	"github.com/fieldops/mailroom/internal/metrics"
	"github.com/fieldops/mailroom/internal/storage"
)

// Normalizer applies canonical events to the queue store, event log, and
// suppression ledger. All side effects are idempotent under replay.
type Normalizer struct {
	queries storage.Querier
}

// NewNormalizer creates a Normalizer over the given storage.
func NewNormalizer(queries storage.Querier) *Normalizer {
	return &Normalizer{queries: queries}
}

// ProcessPayload parses a raw webhook body and processes every event in it.
// One event's failure never aborts the rest of the batch. Returns the number
// of events persisted (duplicates and unparseable entries excluded).
func (n *Normalizer) ProcessPayload(ctx context.Context, raw []byte) (int, error) {
	log := logger.FromContext(ctx)

	vendor, events, skipped, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	if skipped > 0 {
		log.Warn().Str("vendor", vendor).Int("skipped", skipped).Msg("webhook: discarded unrecognized events")
	}

	persisted := 0
	for _, ev := range events {
		inserted, err := n.Process(ctx, ev)
		if err != nil {
			log.Error().Err(err).
				Str("vendor", ev.Vendor).
				Str("event_type", ev.Type).
				Str("provider_message_id", ev.ProviderMessageID).
				Msg("webhook: event processing failed")
			continue
		}
		if inserted {
			persisted++
		}
	}
	return persisted, nil
}

// Process applies one canonical event. Returns false when the event is a
// replay (an event with the same vendor + vendor event ID already exists),
// in which case no side effects run.
func (n *Normalizer) Process(ctx context.Context, ev Event) (bool, error) {
	log := logger.FromContext(ctx)

	item, resolved, err := n.resolveQueueItem(ctx, ev)
	if err != nil {
		return false, err
	}

	params := storage.InsertEmailEventParams{
		ID:                uuid.New(),
		Vendor:            ev.Vendor,
		VendorEventID:     ev.VendorEventID,
		EventType:         ev.Type,
		ProviderMessageID: pgtype.Text{String: ev.ProviderMessageID, Valid: ev.ProviderMessageID != ""},
		Recipient:         pgtype.Text{String: ev.Recipient, Valid: ev.Recipient != ""},
		OccurredAt:        ev.OccurredAt,
		BounceReason:      pgtype.Text{String: ev.BounceReason, Valid: ev.BounceReason != ""},
		ClickedURL:        pgtype.Text{String: ev.ClickedURL, Valid: ev.ClickedURL != ""},
		RawPayload:        ev.RawPayload,
	}

	var tenantID uuid.UUID
	if resolved {
		tenantID = item.TenantID
		params.TenantID = pgtype.UUID{Bytes: item.TenantID, Valid: true}
		params.QueueItemID = pgtype.UUID{Bytes: item.ID, Valid: true}
		if ev.Recipient == "" {
			params.Recipient = pgtype.Text{String: item.Recipient, Valid: true}
		}
	} else {
		// Degrade gracefully: resolve the tenant through the recipient
		// domain so the event is still attributable in the log.
		if id, ok := n.resolveTenantByRecipient(ctx, ev.Recipient); ok {
			tenantID = id
			params.TenantID = pgtype.UUID{Bytes: id, Valid: true}
		}
		metrics.WebhookUnresolvedTotal.Inc()
		log.Warn().
			Str("vendor", ev.Vendor).
			Str("event_type", ev.Type).
			Str("provider_message_id", ev.ProviderMessageID).
			Msg("webhook: queue item not resolved, logging event only")
	}

	inserted, err := n.queries.InsertEmailEvent(ctx, params)
	if err != nil {
		return false, err
	}
	if !inserted {
		metrics.WebhookDuplicatesTotal.Inc()
		return false, nil
	}
	metrics.WebhookEventsTotal.WithLabelValues(ev.Vendor, ev.Type).Inc()

	if err := n.applySideEffects(ctx, ev, item, resolved, tenantID); err != nil {
		// The event row is already persisted; the side-effect failure is
		// recorded but does not fail the batch.
		log.Error().Err(err).
			Str("event_type", ev.Type).
			Str("provider_message_id", ev.ProviderMessageID).
			Msg("webhook: side effect failed")
	}
	return true, nil
}

func (n *Normalizer) resolveQueueItem(ctx context.Context, ev Event) (storage.QueueItem, bool, error) {
	if ev.ProviderMessageID == "" {
		return storage.QueueItem{}, false, nil
	}
	item, err := n.queries.GetQueueItemByProviderMessageID(ctx, ev.ProviderMessageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.QueueItem{}, false, nil
		}
		return storage.QueueItem{}, false, err
	}
	return item, true, nil
}

func (n *Normalizer) resolveTenantByRecipient(ctx context.Context, recipient string) (uuid.UUID, bool) {
	at := strings.LastIndex(recipient, "@")
	if at < 0 {
		return uuid.Nil, false
	}
	domain := strings.ToLower(recipient[at+1:])
	tenant, err := n.queries.GetTenantByDomain(ctx, domain)
	if err != nil {
		return uuid.Nil, false
	}
	return tenant.ID, true
}

func (n *Normalizer) applySideEffects(ctx context.Context, ev Event, item storage.QueueItem, resolved bool, tenantID uuid.UUID) error {
	switch ev.Type {
	case EventDelivered:
		if resolved {
			return n.queries.ConfirmQueueItemDelivered(ctx, item.ID, ev.OccurredAt)
		}

	case EventBounced, EventDropped:
		if resolved {
			reason := ev.BounceReason
			if reason == "" {
				reason = ev.Type
			}
			if err := n.queries.FailQueueItem(ctx, item.ID, reason); err != nil {
				return err
			}
		}
		return n.suppress(ctx, ev, item, resolved, tenantID, storage.SuppressionReasonBounce)

	case EventComplained:
		return n.suppress(ctx, ev, item, resolved, tenantID, storage.SuppressionReasonComplaint)

	case EventUnsubscribed:
		return n.suppress(ctx, ev, item, resolved, tenantID, storage.SuppressionReasonUnsubscribe)

	case EventOpened:
		if resolved {
			_, err := n.queries.SetQueueItemOpened(ctx, item.ID, ev.OccurredAt)
			return err
		}

	case EventClicked:
		if resolved {
			_, err := n.queries.SetQueueItemClicked(ctx, item.ID, ev.OccurredAt)
			return err
		}
	}
	return nil
}

func (n *Normalizer) suppress(ctx context.Context, ev Event, item storage.QueueItem, resolved bool, tenantID uuid.UUID, reason string) error {
	address := ev.Recipient
	if resolved {
		address = item.Recipient
	}
	if address == "" || tenantID == uuid.Nil {
		return nil
	}
	_, err := n.queries.CreateSuppression(ctx, storage.CreateSuppressionParams{
		ID:       uuid.New(),
		TenantID: tenantID,
		Address:  address,
		Reason:   reason,
		Source:   ev.Vendor,
	})
	return err
}
