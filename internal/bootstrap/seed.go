// Package bootstrap provides startup-time initialization routines
// such as seeding the default tenant.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fieldops/mailroom/internal/storage"
)

// SeedDefaultTenant ensures a tenant with the given API key exists, along
// with a verified sending domain and a starter template. It is idempotent:
// if the tenant already exists, it returns immediately.
func SeedDefaultTenant(ctx context.Context, queries storage.Querier, log zerolog.Logger, name, apiKey, domain string) error {
	if apiKey == "" {
		log.Debug().Msg("no bootstrap api key configured, skipping tenant seed")
		return nil
	}

	tenant, err := queries.GetTenantByAPIKey(ctx, apiKey)
	if err == nil {
		log.Info().Str("tenant", tenant.Name).Msg("default tenant already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup tenant: %w", err)
	}

	tenant, err = queries.CreateTenant(ctx, storage.CreateTenantParams{
		ID:     uuid.New(),
		Name:   name,
		APIKey: apiKey,
	})
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	log.Info().Str("tenant_id", tenant.ID.String()).Str("name", name).Msg("default tenant created")

	if domain != "" {
		if _, err := queries.CreateTenantDomain(ctx, storage.CreateTenantDomainParams{
			ID:       uuid.New(),
			TenantID: tenant.ID,
			Domain:   domain,
			Verified: true,
		}); err != nil {
			return fmt.Errorf("create tenant domain: %w", err)
		}
		log.Info().Str("domain", domain).Msg("verified sending domain registered")
	}

	if _, err := queries.CreateTemplate(ctx, storage.CreateTemplateParams{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		Name:     "welcome",
		Subject:  "Welcome, {{name}}!",
		HTMLBody: "<p>Hi {{name}}, thanks for signing up.</p>",
		TextBody: "Hi {{name}}, thanks for signing up.",
	}); err != nil {
		return fmt.Errorf("create starter template: %w", err)
	}

	log.Info().
		Str("tenant", name).
		Str("domain", domain).
		Msg("default tenant seeded successfully")
	return nil
}
