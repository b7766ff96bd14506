package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quoteflow/internal/domain"
	"quoteflow/internal/metrics"
	"quoteflow/internal/port"
	"quoteflow/internal/provider"
)

// ExtractionService dispatches a document to one registered provider.
type ExtractionService interface {
	// Extract runs the named provider, or the default when providerName is empty.
	// Provider failures are returned unchanged.
	Extract(ctx context.Context, input port.ExtractInput, providerName string) (*domain.ExtractionResult, error)
	Providers() []domain.ProviderName
	DefaultProvider() domain.ProviderName
}

type extractionService struct {
	registry        *provider.Registry
	defaultProvider domain.ProviderName
	metrics         *metrics.Recorder
	logger          *zap.Logger
}

// NewExtractionService creates a new ExtractionService. The default provider
// must be registered.
func NewExtractionService(
	registry *provider.Registry,
	defaultProvider string,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) (ExtractionService, error) {
	name, err := domain.ParseProviderName(defaultProvider)
	if err != nil {
		return nil, err
	}
	if _, err := registry.Lookup(name); err != nil {
		return nil, err
	}
	return &extractionService{
		registry:        registry,
		defaultProvider: name,
		metrics:         recorder,
		logger:          logger,
	}, nil
}

func (s *extractionService) Extract(ctx context.Context, input port.ExtractInput, providerName string) (*domain.ExtractionResult, error) {
	name := s.defaultProvider
	if providerName != "" {
		parsed, err := domain.ParseProviderName(providerName)
		if err != nil {
			return nil, err
		}
		name = parsed
	}

	p, err := s.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := p.Extract(ctx, input)
	elapsed := time.Since(start)
	s.metrics.ObserveExtraction(name, elapsed, result, err)

	if err != nil {
		s.logger.Warn("extraction.failed",
			zap.String("document_id", input.DocumentID),
			zap.String("provider", string(name)),
			zap.Int64("elapsed_ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("extraction.completed",
		zap.String("document_id", input.DocumentID),
		zap.String("provider", string(name)),
		zap.Int("line_items", result.Metrics.LineItemsCount),
		zap.Float64("completeness", result.Metrics.CompletenessScore),
		zap.Int64("elapsed_ms", elapsed.Milliseconds()),
	)
	return result, nil
}

func (s *extractionService) Providers() []domain.ProviderName {
	return s.registry.Names()
}

func (s *extractionService) DefaultProvider() domain.ProviderName {
	return s.defaultProvider
}
