package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"quoteflow/internal/config"
	"quoteflow/internal/handler"
	"quoteflow/internal/metrics"
	"quoteflow/internal/provider/builtin"
	"quoteflow/internal/repository/sqlstore"
	"quoteflow/internal/router"
	"quoteflow/internal/service"
	s3storage "quoteflow/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sqlstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	partRepo := sqlstore.NewPartRepo(db)
	priceRepo := sqlstore.NewPartPriceRepo(db)
	extractionRepo := sqlstore.NewExtractionRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(ctx, &cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize providers and services
	recorder := metrics.NewRecorder()
	registry := builtin.Registry(ctx, cfg, logger)
	extractionSvc, err := service.NewExtractionService(registry, cfg.Extraction.DefaultProvider, recorder, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction service: %w", err)
	}
	reconciler := service.NewCatalogReconciler(partRepo, priceRepo, extractionRepo, recorder, logger)
	reviewSvc := service.NewReviewService(extractionSvc, reconciler, extractionRepo, s3Client,
		service.StorageLocation{Bucket: cfg.S3.Bucket, PresignExpiry: cfg.S3.PresignExpiry}, logger)
	compareSvc := service.NewComparisonService(extractionSvc)

	// Setup router
	r := router.Setup(logger, cfg.CORS.AllowedOrigins, router.Handlers{
		Health:     handler.NewHealthHandler(db),
		Provider:   handler.NewProviderHandler(extractionSvc, registry.Unavailable()),
		Extraction: handler.NewExtractionHandler(reviewSvc, compareSvc),
		Metrics:    recorder.Handler(),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
			zap.String("default_provider", string(extractionSvc.DefaultProvider())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server.stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
