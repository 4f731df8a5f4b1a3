package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fieldops/mailroom/internal/config"
	"github.com/fieldops/mailroom/internal/logger"
	"github.com/fieldops/mailroom/internal/metrics"
	"github.com/fieldops/mailroom/internal/provider"
	"github.com/fieldops/mailroom/internal/storage"
	"github.com/fieldops/mailroom/internal/template"
)

// Outcome labels for one dispatch attempt.
const (
	OutcomeSent        = "sent"
	OutcomeRateLimited = "rate_limited"
	OutcomeRequeued    = "requeued"
	OutcomeFailed      = "failed"
	OutcomeCancelled   = "cancelled"
)

// BatchStats summarizes one dispatcher run.
type BatchStats struct {
	Swept    int64
	Claimed  int
	Sent     int
	Requeued int
	Failed   int
}

// Dispatcher drains due queue items through the configured provider. It holds
// no mutable state; concurrent runs coordinate only through the claim step.
type Dispatcher struct {
	queries  storage.Querier
	provider provider.Provider
	retry    *RetryStrategy

	batchSize         int32
	sendTimeout       time.Duration
	processingTimeout time.Duration
	rateLimitDelay    time.Duration
}

// NewDispatcher creates a Dispatcher from the given configuration.
func NewDispatcher(queries storage.Querier, p provider.Provider, cfg config.DispatchConfig) *Dispatcher {
	return &Dispatcher{
		queries:           queries,
		provider:          p,
		retry:             NewRetryStrategy(int(cfg.MaxRetries)),
		batchSize:         cfg.BatchSize,
		sendTimeout:       cfg.SendTimeout,
		processingTimeout: cfg.ProcessingTimeout,
		rateLimitDelay:    cfg.RateLimitDelay,
	}
}

// RunBatch performs one dispatcher cycle: sweep stuck items, claim a batch of
// due items, and dispatch each in claim order. One item's failure never
// aborts the batch.
func (d *Dispatcher) RunBatch(ctx context.Context) (BatchStats, error) {
	log := logger.FromContext(ctx)
	var stats BatchStats

	swept, err := d.queries.SweepStuckQueueItems(ctx, time.Now().Add(-d.processingTimeout))
	if err != nil {
		log.Error().Err(err).Msg("dispatch: stuck-item sweep failed")
	} else if swept > 0 {
		stats.Swept = swept
		metrics.StuckItemsSweptTotal.Add(float64(swept))
		log.Warn().Int64("count", swept).Msg("dispatch: reset stuck processing items")
	}

	items, err := d.queries.ClaimDueQueueItems(ctx, d.batchSize, time.Now())
	if err != nil {
		return stats, fmt.Errorf("claim due items: %w", err)
	}
	stats.Claimed = len(items)

	for i := range items {
		outcome := d.DispatchItem(ctx, &items[i])
		switch outcome {
		case OutcomeSent:
			stats.Sent++
		case OutcomeRateLimited, OutcomeRequeued:
			stats.Requeued++
		case OutcomeFailed, OutcomeCancelled:
			stats.Failed++
		}
	}

	d.recordQueueDepth(ctx)

	if stats.Claimed > 0 {
		log.Info().
			Int("claimed", stats.Claimed).
			Int("sent", stats.Sent).
			Int("requeued", stats.Requeued).
			Int("failed", stats.Failed).
			Msg("dispatch: batch complete")
	}
	return stats, nil
}

// DispatchItem sends one claimed item and records the outcome. The item must
// already be in processing state.
func (d *Dispatcher) DispatchItem(ctx context.Context, item *storage.QueueItem) string {
	log := logger.FromContext(ctx)

	// Re-check suppression at claim time: a suppression added after enqueue
	// cancels the scheduled send.
	suppressed, err := d.queries.IsSuppressed(ctx, item.TenantID, item.Recipient)
	if err != nil {
		log.Error().Err(err).Str("queue_id", item.ID.String()).Msg("dispatch: suppression check failed")
	} else if suppressed {
		if err := d.queries.FailQueueItem(ctx, item.ID, "recipient suppressed"); err != nil {
			log.Error().Err(err).Str("queue_id", item.ID.String()).Msg("dispatch: cancel failed")
		}
		metrics.DispatchOutcomesTotal.WithLabelValues(OutcomeCancelled).Inc()
		log.Info().Str("queue_id", item.ID.String()).Msg("dispatch: cancelled, recipient suppressed")
		return OutcomeCancelled
	}

	msg, err := d.buildMessage(ctx, item)
	if err != nil {
		if ferr := d.queries.FailQueueItem(ctx, item.ID, err.Error()); ferr != nil {
			log.Error().Err(ferr).Str("queue_id", item.ID.String()).Msg("dispatch: fail update failed")
		}
		metrics.DispatchOutcomesTotal.WithLabelValues(OutcomeFailed).Inc()
		return OutcomeFailed
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	start := time.Now()
	result, err := d.provider.Send(sendCtx, msg)
	metrics.DispatchSendDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		return d.recordSent(ctx, item, result)
	}
	return d.recordFailure(ctx, item, err)
}

func (d *Dispatcher) recordSent(ctx context.Context, item *storage.QueueItem, result *provider.DeliveryResult) string {
	log := logger.FromContext(ctx)

	if err := d.queries.MarkQueueItemSent(ctx, storage.MarkQueueItemSentParams{
		ID:                item.ID,
		Provider:          d.provider.GetName(),
		ProviderMessageID: result.ProviderMessageID,
		SentAt:            result.Timestamp,
	}); err != nil {
		log.Error().Err(err).Str("queue_id", item.ID.String()).Msg("dispatch: mark sent failed")
		return OutcomeFailed
	}

	// Record a canonical sent event. The vendor event ID is derived from the
	// queue item and attempt so a swept-and-resent item produces a new row.
	if _, err := d.queries.InsertEmailEvent(ctx, storage.InsertEmailEventParams{
		ID:                uuid.New(),
		TenantID:          pgtype.UUID{Bytes: item.TenantID, Valid: true},
		QueueItemID:       pgtype.UUID{Bytes: item.ID, Valid: true},
		Vendor:            "internal",
		VendorEventID:     fmt.Sprintf("dispatch:%s:%d", item.ID, item.RetryCount),
		EventType:         "sent",
		ProviderMessageID: pgtype.Text{String: result.ProviderMessageID, Valid: result.ProviderMessageID != ""},
		Recipient:         pgtype.Text{String: item.Recipient, Valid: true},
		OccurredAt:        result.Timestamp,
	}); err != nil {
		log.Error().Err(err).Str("queue_id", item.ID.String()).Msg("dispatch: sent event insert failed")
	}

	metrics.DispatchOutcomesTotal.WithLabelValues(OutcomeSent).Inc()
	log.Info().
		Str("queue_id", item.ID.String()).
		Str("provider", d.provider.GetName()).
		Str("provider_message_id", result.ProviderMessageID).
		Msg("dispatch: sent")
	return OutcomeSent
}

func (d *Dispatcher) recordFailure(ctx context.Context, item *storage.QueueItem, sendErr error) string {
	log := logger.FromContext(ctx)

	switch provider.Classify(sendErr) {
	case provider.ErrorKindRateLimited:
		// Short fixed delay, no retry-budget cost.
		if err := d.queries.RequeueQueueItem(ctx, storage.RequeueQueueItemParams{
			ID:          item.ID,
			RetryCount:  item.RetryCount,
			NextRetryAt: time.Now().Add(d.rateLimitDelay),
			LastError:   sendErr.Error(),
		}); err != nil {
			log.Error().Err(err).Str("queue_id", item.ID.String()).Msg("dispatch: requeue failed")
		}
		metrics.DispatchOutcomesTotal.WithLabelValues(OutcomeRateLimited).Inc()
		log.Warn().Str("queue_id", item.ID.String()).Msg("dispatch: rate limited, requeued")
		return OutcomeRateLimited

	case provider.ErrorKindPermanent:
		if err := d.queries.FailQueueItem(ctx, item.ID, sendErr.Error()); err != nil {
			log.Error().Err(err).Str("queue_id", item.ID.String()).Msg("dispatch: fail update failed")
		}
		metrics.DispatchOutcomesTotal.WithLabelValues(OutcomeFailed).Inc()
		log.Warn().Err(sendErr).Str("queue_id", item.ID.String()).Msg("dispatch: permanent failure")
		return OutcomeFailed

	default: // transient
		newCount := item.RetryCount + 1
		maxRetries := item.MaxRetries
		if maxRetries <= 0 {
			maxRetries = int32(d.retry.MaxRetries)
		}
		if newCount < maxRetries {
			backoff := d.retry.NextBackoff(int(item.RetryCount))
			if err := d.queries.RequeueQueueItem(ctx, storage.RequeueQueueItemParams{
				ID:          item.ID,
				RetryCount:  newCount,
				NextRetryAt: time.Now().Add(backoff),
				LastError:   sendErr.Error(),
			}); err != nil {
				log.Error().Err(err).Str("queue_id", item.ID.String()).Msg("dispatch: requeue failed")
			}
			metrics.DispatchOutcomesTotal.WithLabelValues(OutcomeRequeued).Inc()
			log.Warn().Err(sendErr).
				Str("queue_id", item.ID.String()).
				Int32("retry_count", newCount).
				Dur("backoff", backoff).
				Msg("dispatch: transient failure, requeued")
			return OutcomeRequeued
		}

		if err := d.queries.ExhaustQueueItemRetries(ctx, item.ID, newCount, sendErr.Error()); err != nil {
			log.Error().Err(err).Str("queue_id", item.ID.String()).Msg("dispatch: fail update failed")
		}
		metrics.DispatchOutcomesTotal.WithLabelValues(OutcomeFailed).Inc()
		log.Warn().Err(sendErr).
			Str("queue_id", item.ID.String()).
			Int32("retry_count", newCount).
			Msg("dispatch: retries exhausted")
		return OutcomeFailed
	}
}

// buildMessage converts a queue item into a provider message, rendering the
// item's template when one is attached.
func (d *Dispatcher) buildMessage(ctx context.Context, item *storage.QueueItem) (*provider.Message, error) {
	msg := &provider.Message{
		ID:       item.ID.String(),
		TenantID: item.TenantID.String(),
		From:     item.FromAddress,
		FromName: item.FromName.String,
		To:       item.Recipient,
		Subject:  item.Subject,
		ReplyTo:  item.ReplyTo.String,
		HTMLBody: item.HTMLBody.String,
		TextBody: item.TextBody.String,
	}
	if len(item.Tags) > 0 {
		var tags []string
		if err := json.Unmarshal(item.Tags, &tags); err == nil {
			msg.Tags = tags
		}
	}

	// Bodies are rendered at enqueue time; re-render from the template only
	// when they are missing (e.g. rows created before a template existed).
	if !item.TemplateID.Valid || msg.HTMLBody != "" || msg.TextBody != "" {
		return msg, nil
	}

	tpl, err := d.queries.GetTemplate(ctx, item.TenantID, item.TemplateID.Bytes)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	vars := map[string]string{}
	if len(item.TemplateVars) > 0 {
		if err := json.Unmarshal(item.TemplateVars, &vars); err != nil {
			return nil, fmt.Errorf("decode template vars: %w", err)
		}
	}
	rendered := template.Render(tpl.Subject, tpl.HTMLBody, tpl.TextBody, vars)
	if msg.Subject == "" {
		msg.Subject = rendered.Subject
	}
	msg.HTMLBody = rendered.HTMLBody
	msg.TextBody = rendered.TextBody
	return msg, nil
}

func (d *Dispatcher) recordQueueDepth(ctx context.Context) {
	counts, err := d.queries.CountQueueItemsByStatus(ctx)
	if err != nil {
		return
	}
	for _, sc := range counts {
		metrics.QueueDepth.WithLabelValues(string(sc.Status)).Set(float64(sc.Count))
	}
}
