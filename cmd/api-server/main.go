package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldops/mailroom/internal/api"
	"github.com/fieldops/mailroom/internal/attachstore"
	"github.com/fieldops/mailroom/internal/auth"
	"github.com/fieldops/mailroom/internal/bootstrap"
	"github.com/fieldops/mailroom/internal/config"
	"github.com/fieldops/mailroom/internal/delivery"
	"github.com/fieldops/mailroom/internal/inbound"
	"github.com/fieldops/mailroom/internal/logger"
	"github.com/fieldops/mailroom/internal/provider"
	"github.com/fieldops/mailroom/internal/storage"
	"github.com/fieldops/mailroom/internal/webhook"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromConfig(logger.LoggingConfig{
		Level:     cfg.Logging.Level,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting API server")

	ctx := context.Background()
	db, err := storage.NewDB(ctx, cfg.Database.URL, cfg.Database.PoolMin, cfg.Database.PoolMax, cfg.Database.ConnectTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("database connection established")

	queries := storage.New(db.Pool)

	if err := bootstrap.SeedDefaultTenant(ctx, queries, log,
		cfg.Bootstrap.TenantName, cfg.Bootstrap.APIKey, cfg.Bootstrap.Domain); err != nil {
		log.Fatal().Err(err).Msg("failed to seed default tenant")
	}

	// Redis is optional; without it send quotas are not enforced.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisClient.Close()
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connection established")
	} else {
		log.Warn().Msg("redis not configured, send quotas disabled")
	}
	quota := auth.NewQuotaLimiter(redisClient, cfg.RateLimit.DefaultMonthlyLimit)

	httpClient := provider.NewHTTPClient(cfg.Provider.RequestTimeout)
	p, err := provider.New(provider.Config{
		Name:     cfg.Provider.Name,
		APIKey:   cfg.Provider.APIKey,
		Endpoint: cfg.Provider.Endpoint,
		Timeout:  cfg.Provider.RequestTimeout,
	}, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider")
	}
	log.Info().Str("provider", p.GetName()).Msg("email provider initialized")

	dispatcher := delivery.NewDispatcher(queries, p, cfg.Dispatch)
	enqueueService := delivery.NewEnqueueService(queries, dispatcher, quota, cfg.Dispatch.MaxRetries)

	store, err := attachstore.New(attachstore.Config{
		Type:       cfg.Inbound.StoreType,
		Path:       cfg.Inbound.StorePath,
		S3Bucket:   cfg.Inbound.S3Bucket,
		S3Prefix:   cfg.Inbound.S3Prefix,
		S3Endpoint: cfg.Inbound.S3Endpoint,
		S3Region:   cfg.Inbound.S3Region,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize attachment store")
	}

	router := api.NewRouter(api.RouterDeps{
		Log:        log,
		DB:         db,
		Queries:    queries,
		Enqueue:    enqueueService,
		Normalizer: webhook.NewNormalizer(queries),
		Inbound:    inbound.NewService(queries, store),
	})

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
