package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const queueItemColumns = `id, tenant_id, recipient, from_address, from_name, reply_to, subject,
	html_body, text_body, template_id, template_vars, tags, priority, status,
	retry_count, max_retries, scheduled_at, next_retry_at, last_error,
	provider, provider_message_id, sent_at, delivered_at, opened_at, clicked_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (QueueItem, error) {
	var qi QueueItem
	err := row.Scan(
		&qi.ID, &qi.TenantID, &qi.Recipient, &qi.FromAddress, &qi.FromName, &qi.ReplyTo, &qi.Subject,
		&qi.HTMLBody, &qi.TextBody, &qi.TemplateID, &qi.TemplateVars, &qi.Tags, &qi.Priority, &qi.Status,
		&qi.RetryCount, &qi.MaxRetries, &qi.ScheduledAt, &qi.NextRetryAt, &qi.LastError,
		&qi.Provider, &qi.ProviderMessageID, &qi.SentAt, &qi.DeliveredAt, &qi.OpenedAt, &qi.ClickedAt,
		&qi.CreatedAt, &qi.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return QueueItem{}, ErrNotFound
	}
	return qi, err
}

// CreateQueueItemParams holds the fields for a new pending queue item.
type CreateQueueItemParams struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Recipient    string
	FromAddress  string
	FromName     pgtype.Text
	ReplyTo      pgtype.Text
	Subject      string
	HTMLBody     pgtype.Text
	TextBody     pgtype.Text
	TemplateID   pgtype.UUID
	TemplateVars []byte
	Tags         []byte
	Priority     int32
	MaxRetries   int32
	ScheduledAt  time.Time
}

const createQueueItemSQL = `
INSERT INTO queue_items (
	id, tenant_id, recipient, from_address, from_name, reply_to, subject,
	html_body, text_body, template_id, template_vars, tags,
	priority, status, max_retries, scheduled_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'pending', $14, $15)
RETURNING ` + queueItemColumns

// CreateQueueItem inserts a new queue item with status pending.
func (q *Queries) CreateQueueItem(ctx context.Context, arg CreateQueueItemParams) (QueueItem, error) {
	row := q.db.QueryRow(ctx, createQueueItemSQL,
		arg.ID, arg.TenantID, arg.Recipient, arg.FromAddress, arg.FromName, arg.ReplyTo, arg.Subject,
		arg.HTMLBody, arg.TextBody, arg.TemplateID, arg.TemplateVars, arg.Tags,
		arg.Priority, arg.MaxRetries, arg.ScheduledAt,
	)
	return scanQueueItem(row)
}

// GetQueueItem fetches one queue item by ID.
func (q *Queries) GetQueueItem(ctx context.Context, id uuid.UUID) (QueueItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+queueItemColumns+` FROM queue_items WHERE id = $1`, id)
	return scanQueueItem(row)
}

// GetQueueItemByProviderMessageID resolves a queue item from the message
// identifier assigned by the vendor at send time.
func (q *Queries) GetQueueItemByProviderMessageID(ctx context.Context, providerMessageID string) (QueueItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+queueItemColumns+` FROM queue_items WHERE provider_message_id = $1`,
		providerMessageID)
	return scanQueueItem(row)
}

// ClaimQueueItem transitions a single item from pending to processing.
// The conditional update guarantees only one caller wins the row; ErrNotFound
// means the item was already claimed or is not pending.
func (q *Queries) ClaimQueueItem(ctx context.Context, id uuid.UUID) (QueueItem, error) {
	row := q.db.QueryRow(ctx, `
UPDATE queue_items SET status = 'processing', updated_at = now()
WHERE id = $1 AND status = 'pending'
RETURNING `+queueItemColumns, id)
	return scanQueueItem(row)
}

const claimDueQueueItemsSQL = `
WITH claimed AS (
	UPDATE queue_items SET status = 'processing', updated_at = now()
	WHERE id IN (
		SELECT id FROM queue_items
		WHERE status = 'pending'
		  AND COALESCE(next_retry_at, scheduled_at) <= $2
		ORDER BY priority ASC, scheduled_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING ` + queueItemColumns + `
)
SELECT ` + queueItemColumns + ` FROM claimed ORDER BY priority ASC, scheduled_at ASC`

// ClaimDueQueueItems atomically claims up to limit due pending items,
// marking them processing. SKIP LOCKED lets concurrent dispatcher runs
// claim disjoint sets. Results are ordered by (priority, scheduled_at).
func (q *Queries) ClaimDueQueueItems(ctx context.Context, limit int32, now time.Time) ([]QueueItem, error) {
	rows, err := q.db.Query(ctx, claimDueQueueItemsSQL, limit, now)
	if err != nil {
		return nil, fmt.Errorf("claim due queue items: %w", err)
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		qi, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed item: %w", err)
		}
		items = append(items, qi)
	}
	return items, rows.Err()
}

// MarkQueueItemSentParams records vendor acceptance of a send.
type MarkQueueItemSentParams struct {
	ID                uuid.UUID
	Provider          string
	ProviderMessageID string
	SentAt            time.Time
}

// MarkQueueItemSent transitions a processing item to sent and stores the
// provider message ID used to correlate later webhook events.
func (q *Queries) MarkQueueItemSent(ctx context.Context, arg MarkQueueItemSentParams) error {
	_, err := q.db.Exec(ctx, `
UPDATE queue_items
SET status = 'sent', provider = $2, provider_message_id = $3, sent_at = $4,
    last_error = NULL, updated_at = now()
WHERE id = $1 AND status = 'processing'`,
		arg.ID, arg.Provider, arg.ProviderMessageID, arg.SentAt)
	return err
}

// RequeueQueueItemParams returns a processing item to pending for a later
// retry attempt.
type RequeueQueueItemParams struct {
	ID          uuid.UUID
	RetryCount  int32
	NextRetryAt time.Time
	LastError   string
}

// RequeueQueueItem reverts a processing item to pending with updated retry
// bookkeeping.
func (q *Queries) RequeueQueueItem(ctx context.Context, arg RequeueQueueItemParams) error {
	_, err := q.db.Exec(ctx, `
UPDATE queue_items
SET status = 'pending', retry_count = $2, next_retry_at = $3, last_error = $4,
    updated_at = now()
WHERE id = $1 AND status = 'processing'`,
		arg.ID, arg.RetryCount, arg.NextRetryAt, arg.LastError)
	return err
}

// FailQueueItem transitions an item to terminal failed. Applies to
// processing items (send failures) and pending items (cancelled at claim).
func (q *Queries) FailQueueItem(ctx context.Context, id uuid.UUID, lastError string) error {
	_, err := q.db.Exec(ctx, `
UPDATE queue_items
SET status = 'failed', last_error = $2, updated_at = now()
WHERE id = $1 AND status IN ('pending', 'processing')`,
		id, lastError)
	return err
}

// ExhaustQueueItemRetries transitions a processing item to terminal failed
// once its retry budget is spent, recording the final retry count.
func (q *Queries) ExhaustQueueItemRetries(ctx context.Context, id uuid.UUID, retryCount int32, lastError string) error {
	_, err := q.db.Exec(ctx, `
UPDATE queue_items
SET status = 'failed', retry_count = $2, last_error = $3, updated_at = now()
WHERE id = $1 AND status = 'processing'`,
		id, retryCount, lastError)
	return err
}

// ConfirmQueueItemDelivered records a delivery confirmation. Only items that
// reached the vendor can be confirmed; terminal failed items never regress.
func (q *Queries) ConfirmQueueItemDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	_, err := q.db.Exec(ctx, `
UPDATE queue_items
SET status = 'sent', delivered_at = COALESCE(delivered_at, $2), updated_at = now()
WHERE id = $1 AND status IN ('processing', 'sent')`,
		id, deliveredAt)
	return err
}

// SetQueueItemOpened records the first open timestamp. Returns false when an
// earlier open was already recorded.
func (q *Queries) SetQueueItemOpened(ctx context.Context, id uuid.UUID, openedAt time.Time) (bool, error) {
	tag, err := q.db.Exec(ctx, `
UPDATE queue_items SET opened_at = $2, updated_at = now()
WHERE id = $1 AND opened_at IS NULL`,
		id, openedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetQueueItemClicked records the first click timestamp. Returns false when
// an earlier click was already recorded.
func (q *Queries) SetQueueItemClicked(ctx context.Context, id uuid.UUID, clickedAt time.Time) (bool, error) {
	tag, err := q.db.Exec(ctx, `
UPDATE queue_items SET clicked_at = $2, updated_at = now()
WHERE id = $1 AND clicked_at IS NULL`,
		id, clickedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SweepStuckQueueItems resets items abandoned mid-processing (worker crashed
// before recording an outcome) back to pending so they are retried.
func (q *Queries) SweepStuckQueueItems(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `
UPDATE queue_items
SET status = 'pending', last_error = 'reset by stuck-item sweep', updated_at = now()
WHERE status = 'processing' AND updated_at < $1`,
		cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountQueueItemsByStatus aggregates queue depth for metrics and stats.
func (q *Queries) CountQueueItemsByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := q.db.Query(ctx,
		`SELECT status, COUNT(*) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}
