// Package inbound receives mail posted by an inbound-parse provider and
// stores it for the owning tenant.
package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fieldops/mailroom/internal/attachstore"
	"github.com/fieldops/mailroom/internal/logger"
	"github.com/fieldops/mailroom/internal/metrics"
	"github.com/fieldops/mailroom/internal/storage"
)

// ErrUnknownDomain is returned when the recipient's domain does not belong
// to any tenant with a verified domain.
var ErrUnknownDomain = errors.New("inbound: recipient domain not registered")

// ErrMissingFields is returned when the message lacks a sender or recipient.
var ErrMissingFields = errors.New("inbound: from and to are required")

// Attachment is one file received with an inbound message.
type Attachment struct {
	Filename string
	Content  []byte
}

// Message is one inbound email, already decoded from the wire format.
type Message struct {
	To          string
	From        string
	Subject     string
	HTML        string
	Text        string
	Headers     map[string]string
	Attachments []Attachment
}

// Service resolves inbound mail to tenants and persists it.
type Service struct {
	queries storage.Querier
	store   attachstore.Store
}

// NewService creates an inbound Service. store may be nil when attachment
// persistence is disabled.
func NewService(queries storage.Querier, store attachstore.Store) *Service {
	return &Service{queries: queries, store: store}
}

// Receive stores one inbound message. The owning tenant is resolved strictly
// by matching the recipient's domain against the verified-domain registry;
// mail for unknown domains is rejected. The sender is linked to an existing
// contact on a best-effort basis.
func (s *Service) Receive(ctx context.Context, msg *Message) (*storage.InboundMessage, error) {
	log := logger.FromContext(ctx)

	if msg.From == "" || msg.To == "" {
		metrics.InboundMessagesTotal.WithLabelValues("rejected").Inc()
		return nil, ErrMissingFields
	}

	domain := addressDomain(msg.To)
	tenant, err := s.queries.GetTenantByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.InboundMessagesTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
		}
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}

	contactID := pgtype.UUID{}
	contact, err := s.queries.FindContactByEmail(ctx, tenant.ID, strings.ToLower(msg.From))
	if err == nil {
		contactID = pgtype.UUID{Bytes: contact.ID, Valid: true}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Warn().Err(err).Str("from", msg.From).Msg("inbound: contact lookup failed")
	}

	messageID := uuid.New()
	keys := s.storeAttachments(ctx, messageID, msg.Attachments)

	var headers []byte
	if len(msg.Headers) > 0 {
		headers, _ = json.Marshal(msg.Headers)
	}
	var attachmentKeys []byte
	if len(keys) > 0 {
		attachmentKeys, _ = json.Marshal(keys)
	}

	stored, err := s.queries.CreateInboundMessage(ctx, storage.CreateInboundMessageParams{
		ID:             messageID,
		TenantID:       tenant.ID,
		ContactID:      contactID,
		FromAddress:    msg.From,
		ToAddress:      msg.To,
		Subject:        msg.Subject,
		HTMLBody:       pgtype.Text{String: msg.HTML, Valid: msg.HTML != ""},
		TextBody:       pgtype.Text{String: msg.Text, Valid: msg.Text != ""},
		Headers:        headers,
		AttachmentKeys: attachmentKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("store inbound message: %w", err)
	}

	metrics.InboundMessagesTotal.WithLabelValues("stored").Inc()
	log.Info().
		Str("inbound_id", stored.ID.String()).
		Str("tenant_id", tenant.ID.String()).
		Str("from", msg.From).
		Bool("matched_contact", contactID.Valid).
		Msg("inbound: message stored")
	return &stored, nil
}

// storeAttachments writes attachments to the store and returns their keys.
// Storage failures are logged and skipped; the message itself is still kept.
func (s *Service) storeAttachments(ctx context.Context, messageID uuid.UUID, attachments []Attachment) []string {
	if s.store == nil || len(attachments) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)

	var keys []string
	for i, att := range attachments {
		name := att.Filename
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i)
		}
		key := fmt.Sprintf("%s/%s", messageID, name)
		if err := s.store.Put(ctx, key, att.Content); err != nil {
			log.Error().Err(err).Str("key", key).Msg("inbound: attachment store failed")
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func addressDomain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}
