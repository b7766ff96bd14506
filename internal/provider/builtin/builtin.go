// Package builtin wires the shipped extraction providers to configuration.
package builtin

import (
	"context"

	"go.uber.org/zap"

	"quoteflow/internal/config"
	"quoteflow/internal/domain"
	"quoteflow/internal/fetch"
	"quoteflow/internal/port"
	"quoteflow/internal/provider"
	"quoteflow/internal/provider/docai"
	"quoteflow/internal/provider/llmtext"
	"quoteflow/internal/provider/mock"
)

// Factories returns one factory per known provider, in declaration order.
func Factories(cfg *config.Config, logger *zap.Logger) []provider.Factory {
	docs := fetch.NewDownloader(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)

	return []provider.Factory{
		{
			Name: domain.ProviderMock,
			New: func(context.Context) (port.ExtractionProvider, error) {
				return mock.New(cfg.Extraction.MockDelay), nil
			},
		},
		{
			Name: domain.ProviderLLMText,
			New: func(context.Context) (port.ExtractionProvider, error) {
				return llmtext.New(cfg.Extraction.LLMText, docs, logger)
			},
		},
		{
			Name: domain.ProviderDocumentAI,
			New: func(ctx context.Context) (port.ExtractionProvider, error) {
				return docai.New(ctx, cfg.Extraction.DocumentAI, logger)
			},
		},
	}
}

// Registry builds the provider registry for cfg.
func Registry(ctx context.Context, cfg *config.Config, logger *zap.Logger) *provider.Registry {
	return provider.BuildRegistry(ctx, logger, Factories(cfg, logger)...)
}
