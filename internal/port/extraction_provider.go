package port

import (
	"context"

	"quoteflow/internal/domain"
)

// ExtractInput locates the document a provider should extract.
type ExtractInput struct {
	DocumentID  string
	DocumentURL string
}

// ExtractionProvider turns a supplier quote document into a canonical extraction.
// Implementations validate their output against the canonical schema before returning.
type ExtractionProvider interface {
	Name() domain.ProviderName
	Extract(ctx context.Context, input ExtractInput) (*domain.ExtractionResult, error)
}
