package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Enqueue metrics
var (
	EmailsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailroom_emails_enqueued_total",
			Help: "Total number of emails accepted by the enqueue service",
		},
		[]string{"mode"}, // sent_immediately, scheduled
	)

	EnqueueRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailroom_enqueue_rejections_total",
			Help: "Total number of rejected enqueue requests",
		},
		[]string{"reason"}, // validation, suppressed, unverified_domain, quota
	)
)

// Dispatch metrics
var (
	DispatchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailroom_dispatch_outcomes_total",
			Help: "Total number of dispatch attempts by outcome",
		},
		[]string{"outcome"}, // sent, rate_limited, requeued, failed
	)

	DispatchSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailroom_dispatch_send_duration_seconds",
			Help:    "Duration of vendor send calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mailroom_queue_depth",
			Help: "Number of queue items by status",
		},
		[]string{"status"},
	)

	StuckItemsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailroom_stuck_items_swept_total",
			Help: "Total number of processing items reset to pending by the sweep",
		},
	)
)

// Webhook metrics
var (
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailroom_webhook_events_total",
			Help: "Total number of webhook events by canonical type",
		},
		[]string{"vendor", "type"},
	)

	WebhookDuplicatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailroom_webhook_duplicates_total",
			Help: "Total number of webhook events dropped as replays",
		},
	)

	WebhookUnresolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailroom_webhook_unresolved_total",
			Help: "Total number of webhook events with no matching queue item",
		},
	)
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailroom_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailroom_api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Inbound metrics
var (
	InboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailroom_inbound_messages_total",
			Help: "Total number of inbound messages by outcome",
		},
		[]string{"outcome"}, // stored, rejected
	)
)
