package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
)

// MockExtractionService is a mock implementation of service.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) Extract(ctx context.Context, input port.ExtractInput, providerName string) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, input, providerName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractionService) Providers() []domain.ProviderName {
	args := m.Called()
	return args.Get(0).([]domain.ProviderName)
}

func (m *MockExtractionService) DefaultProvider() domain.ProviderName {
	args := m.Called()
	return args.Get(0).(domain.ProviderName)
}
