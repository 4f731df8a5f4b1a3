package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fieldops/mailroom/internal/auth"
	"github.com/fieldops/mailroom/internal/delivery"
	"github.com/fieldops/mailroom/internal/inbound"
	"github.com/fieldops/mailroom/internal/storage"
	"github.com/fieldops/mailroom/internal/webhook"
)

// RouterDeps carries everything the HTTP router needs.
type RouterDeps struct {
	Log        zerolog.Logger
	DB         *storage.DB
	Queries    storage.Querier
	Enqueue    *delivery.EnqueueService
	Normalizer *webhook.Normalizer
	Inbound    *inbound.Service
}

// NewRouter assembles the HTTP routing tree.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoverMiddleware(deps.Log))
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(deps.Log))

	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	enqueueHandler := NewEnqueueHandler(deps.Enqueue, deps.Queries)
	webhookHandler := NewWebhookHandler(deps.Normalizer)
	inboundHandler := NewInboundHandler(deps.Inbound)
	suppressionHandler := NewSuppressionHandler(deps.Queries)

	r.Route("/api/v1", func(r chi.Router) {
		// Provider callbacks and the mail ingress authenticate out of band.
		r.Post("/webhooks/email", webhookHandler.Receive)
		r.Post("/inbound", inboundHandler.Receive)

		r.Group(func(r chi.Router) {
			r.Use(auth.BearerAuth(deps.Queries.GetTenantByAPIKey))

			r.Post("/emails", enqueueHandler.Enqueue)
			r.Get("/emails/{id}", enqueueHandler.GetEmail)
			r.Get("/suppressions", suppressionHandler.List)
			r.Post("/suppressions", suppressionHandler.Create)
		})
	})

	return r
}
