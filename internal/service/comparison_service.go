package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"quoteflow/internal/domain"
	"quoteflow/internal/metrics"
	"quoteflow/internal/port"
)

// ProviderOutcome is one provider's result within a comparison.
type ProviderOutcome struct {
	Provider  domain.ProviderName      `json:"provider"`
	Result    *domain.ExtractionResult `json:"result,omitempty"`
	ErrorKind string                   `json:"error_kind,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ElapsedMs int64                    `json:"elapsed_ms"`
}

// ComparisonService runs one document through several providers side by side.
type ComparisonService interface {
	// Compare runs every requested provider concurrently, or every registered
	// provider when none are named. Unknown names fail the whole call before
	// any provider runs; individual provider failures are reported per outcome.
	Compare(ctx context.Context, input port.ExtractInput, providers []string) ([]ProviderOutcome, error)
}

type comparisonService struct {
	extractor ExtractionService
}

// NewComparisonService creates a new ComparisonService.
func NewComparisonService(extractor ExtractionService) ComparisonService {
	return &comparisonService{extractor: extractor}
}

func (s *comparisonService) Compare(ctx context.Context, input port.ExtractInput, providers []string) ([]ProviderOutcome, error) {
	names, err := s.resolve(providers)
	if err != nil {
		return nil, err
	}

	outcomes := make([]ProviderOutcome, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			start := time.Now()
			result, err := s.extractor.Extract(ctx, input, string(name))
			out := ProviderOutcome{
				Provider:  name,
				Result:    result,
				ElapsedMs: time.Since(start).Milliseconds(),
			}
			if err != nil {
				out.ErrorKind = metrics.Outcome(err)
				out.Error = err.Error()
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *comparisonService) resolve(providers []string) ([]domain.ProviderName, error) {
	if len(providers) == 0 {
		return s.extractor.Providers(), nil
	}
	seen := make(map[domain.ProviderName]bool, len(providers))
	names := make([]domain.ProviderName, 0, len(providers))
	for _, p := range providers {
		name, err := domain.ParseProviderName(p)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}
