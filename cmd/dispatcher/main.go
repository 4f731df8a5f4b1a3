package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldops/mailroom/internal/config"
	"github.com/fieldops/mailroom/internal/delivery"
	"github.com/fieldops/mailroom/internal/logger"
	"github.com/fieldops/mailroom/internal/provider"
	"github.com/fieldops/mailroom/internal/storage"
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
	log.Info().Msg("starting dispatcher")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.NewDB(ctx, cfg.Database.URL, cfg.Database.PoolMin, cfg.Database.PoolMax, cfg.Database.ConnectTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	queries := storage.New(db.Pool)

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

	dispatcher := delivery.NewDispatcher(queries, p, cfg.Dispatch)

	log.Info().
		Str("provider", p.GetName()).
		Dur("interval", cfg.Dispatch.Interval).
		Int32("batch_size", cfg.Dispatch.BatchSize).
		Msg("dispatcher running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Dispatch.Interval)
	defer ticker.Stop()

	runBatch(ctx, dispatcher, log)

	for {
		select {
		case <-ticker.C:
			runBatch(ctx, dispatcher, log)
		case sig := <-quit:
			log.Info().Str("signal", sig.String()).Msg("shutting down dispatcher")
			cancel()
			log.Info().Msg("dispatcher stopped")
			return
		}
	}
}

func runBatch(ctx context.Context, dispatcher *delivery.Dispatcher, log zerolog.Logger) {
	stats, err := dispatcher.RunBatch(ctx)
	if err != nil {
		log.Error().Err(err).Msg("dispatch batch failed")
		return
	}
	if stats.Claimed == 0 && stats.Swept == 0 {
		return
	}
	log.Info().
		Int64("swept", stats.Swept).
		Int("claimed", stats.Claimed).
		Int("sent", stats.Sent).
		Int("requeued", stats.Requeued).
		Int("failed", stats.Failed).
		Msg("dispatch batch completed")
}
