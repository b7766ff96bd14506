package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
)

// MockExtractionProvider is a mock implementation of port.ExtractionProvider.
type MockExtractionProvider struct {
	mock.Mock
	ProviderName domain.ProviderName
}

func (m *MockExtractionProvider) Name() domain.ProviderName {
	return m.ProviderName
}

func (m *MockExtractionProvider) Extract(ctx context.Context, input port.ExtractInput) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}
