package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fieldops/mailroom/internal/logger"
	"github.com/fieldops/mailroom/internal/metrics"
	"github.com/fieldops/mailroom/internal/storage"
	"github.com/fieldops/mailroom/internal/template"
)

// Enqueue error categories, mapped to API error responses by the handler.
var (
	ErrValidation       = errors.New("validation failed")
	ErrSuppressed       = errors.New("recipient is suppressed")
	ErrUnverifiedDomain = errors.New("sending domain is not verified")
	ErrQuotaExceeded    = errors.New("monthly send quota exceeded")
	ErrTemplateNotFound = errors.New("template not found")
)

// Send modes returned to the caller.
const (
	ModeSentImmediately = "sent_immediately"
	ModeScheduled       = "scheduled"
)

const (
	defaultPriority = 5
	minPriority     = 1
	maxPriority     = 10
)

// QuotaChecker enforces per-tenant send quotas. A nil checker means no limit.
type QuotaChecker interface {
	Allow(ctx context.Context, tenant storage.Tenant) (bool, error)
}

// EnqueueRequest is one send request from a business-logic collaborator.
type EnqueueRequest struct {
	To                string            `json:"to" validate:"required,email"`
	From              string            `json:"from" validate:"required,email"`
	FromName          string            `json:"from_name"`
	Subject           string            `json:"subject"`
	HTML              string            `json:"html"`
	Text              string            `json:"text"`
	TemplateID        string            `json:"template_id" validate:"omitempty,uuid"`
	TemplateVariables map[string]string `json:"template_variables"`
	ReplyTo           string            `json:"reply_to" validate:"omitempty,email"`
	Priority          int               `json:"priority" validate:"omitempty,min=1,max=10"`
	ScheduledAt       *time.Time        `json:"scheduled_at"`
	Tags              []string          `json:"tags"`
}

// EnqueueResult reports the created queue item and whether the send happened
// inline or was left for the periodic dispatcher.
type EnqueueResult struct {
	QueueID uuid.UUID `json:"queue_id"`
	Status  string    `json:"status"`
}

// EnqueueService validates send requests and persists them as queue items,
// attempting an inline send for due requests.
type EnqueueService struct {
	queries    storage.Querier
	dispatcher *Dispatcher
	quota      QuotaChecker
	validate   *validator.Validate
	maxRetries int32
}

// NewEnqueueService creates an EnqueueService. The dispatcher is used for the
// synchronous send path; quota may be nil to disable quota enforcement.
func NewEnqueueService(queries storage.Querier, dispatcher *Dispatcher, quota QuotaChecker, maxRetries int32) *EnqueueService {
	return &EnqueueService{
		queries:    queries,
		dispatcher: dispatcher,
		quota:      quota,
		validate:   validator.New(),
		maxRetries: maxRetries,
	}
}

// Enqueue validates the request, renders any template, persists a pending
// queue item, and attempts an inline send when the item is due now.
func (s *EnqueueService) Enqueue(ctx context.Context, tenant storage.Tenant, req *EnqueueRequest) (*EnqueueResult, error) {
	log := logger.FromContext(ctx)

	if err := s.validateRequest(ctx, tenant, req); err != nil {
		return nil, err
	}

	suppressed, err := s.queries.IsSuppressed(ctx, tenant.ID, req.To)
	if err != nil {
		return nil, fmt.Errorf("suppression check: %w", err)
	}
	if suppressed {
		metrics.EnqueueRejectionsTotal.WithLabelValues("suppressed").Inc()
		return nil, fmt.Errorf("%w: %s", ErrSuppressed, req.To)
	}

	if s.quota != nil {
		allowed, err := s.quota.Allow(ctx, tenant)
		if err != nil {
			log.Error().Err(err).Msg("enqueue: quota check failed, allowing send")
		} else if !allowed {
			metrics.EnqueueRejectionsTotal.WithLabelValues("quota").Inc()
			return nil, ErrQuotaExceeded
		}
	}

	params, err := s.buildQueueItem(ctx, tenant, req)
	if err != nil {
		return nil, err
	}

	item, err := s.queries.CreateQueueItem(ctx, *params)
	if err != nil {
		return nil, fmt.Errorf("create queue item: %w", err)
	}

	if item.ScheduledAt.After(time.Now()) {
		metrics.EmailsEnqueuedTotal.WithLabelValues(ModeScheduled).Inc()
		return &EnqueueResult{QueueID: item.ID, Status: ModeScheduled}, nil
	}

	// Due now: one synchronous attempt so interactive callers see immediate
	// feedback. On failure the dispatcher's retry bookkeeping takes over.
	status := ModeScheduled
	claimed, err := s.queries.ClaimQueueItem(ctx, item.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error().Err(err).Str("queue_id", item.ID.String()).Msg("enqueue: inline claim failed")
		}
	} else if s.dispatcher.DispatchItem(ctx, &claimed) == OutcomeSent {
		status = ModeSentImmediately
	}

	metrics.EmailsEnqueuedTotal.WithLabelValues(status).Inc()
	return &EnqueueResult{QueueID: item.ID, Status: status}, nil
}

func (s *EnqueueService) validateRequest(ctx context.Context, tenant storage.Tenant, req *EnqueueRequest) error {
	if err := s.validate.Struct(req); err != nil {
		metrics.EnqueueRejectionsTotal.WithLabelValues("validation").Inc()
		return fmt.Errorf("%w: %s", ErrValidation, validationDetail(err))
	}
	if req.HTML == "" && req.Text == "" && req.TemplateID == "" {
		metrics.EnqueueRejectionsTotal.WithLabelValues("validation").Inc()
		return fmt.Errorf("%w: either html, text, or template_id is required", ErrValidation)
	}
	if req.Subject == "" && req.TemplateID == "" {
		metrics.EnqueueRejectionsTotal.WithLabelValues("validation").Inc()
		return fmt.Errorf("%w: subject is required without a template", ErrValidation)
	}

	domain := addressDomain(req.From)
	verified, err := s.queries.HasVerifiedDomain(ctx, tenant.ID, domain)
	if err != nil {
		return fmt.Errorf("verified domain check: %w", err)
	}
	if !verified {
		metrics.EnqueueRejectionsTotal.WithLabelValues("unverified_domain").Inc()
		return fmt.Errorf("%w: %s", ErrUnverifiedDomain, domain)
	}
	return nil
}

func (s *EnqueueService) buildQueueItem(ctx context.Context, tenant storage.Tenant, req *EnqueueRequest) (*storage.CreateQueueItemParams, error) {
	subject := req.Subject
	htmlBody := req.HTML
	textBody := req.Text
	templateID := pgtype.UUID{}
	var templateVars []byte

	if req.TemplateID != "" {
		tplID, err := uuid.Parse(req.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid template_id", ErrValidation)
		}
		tpl, err := s.queries.GetTemplate(ctx, tenant.ID, tplID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				metrics.EnqueueRejectionsTotal.WithLabelValues("validation").Inc()
				return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, req.TemplateID)
			}
			return nil, fmt.Errorf("load template: %w", err)
		}

		if subject == "" {
			subject = tpl.Subject
		}
		rendered := template.Render(subject, tpl.HTMLBody, tpl.TextBody, req.TemplateVariables)
		subject = rendered.Subject
		htmlBody = rendered.HTMLBody
		textBody = rendered.TextBody

		templateID = pgtype.UUID{Bytes: tplID, Valid: true}
		if len(req.TemplateVariables) > 0 {
			templateVars, _ = json.Marshal(req.TemplateVariables)
		}
	}

	priority := req.Priority
	if priority < minPriority || priority > maxPriority {
		priority = defaultPriority
	}

	scheduledAt := time.Now()
	if req.ScheduledAt != nil {
		scheduledAt = *req.ScheduledAt
	}

	var tags []byte
	if len(req.Tags) > 0 {
		tags, _ = json.Marshal(req.Tags)
	}

	return &storage.CreateQueueItemParams{
		ID:           uuid.New(),
		TenantID:     tenant.ID,
		Recipient:    strings.ToLower(strings.TrimSpace(req.To)),
		FromAddress:  req.From,
		FromName:     pgtype.Text{String: req.FromName, Valid: req.FromName != ""},
		ReplyTo:      pgtype.Text{String: req.ReplyTo, Valid: req.ReplyTo != ""},
		Subject:      subject,
		HTMLBody:     pgtype.Text{String: htmlBody, Valid: htmlBody != ""},
		TextBody:     pgtype.Text{String: textBody, Valid: textBody != ""},
		TemplateID:   templateID,
		TemplateVars: templateVars,
		Tags:         tags,
		Priority:     int32(priority),
		MaxRetries:   s.maxRetries,
		ScheduledAt:  scheduledAt,
	}, nil
}

func addressDomain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// validationDetail flattens validator errors into a short human-readable list.
func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
