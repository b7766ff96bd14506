package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"quoteflow/internal/port"
	"quoteflow/internal/service"
)

// MockComparisonService is a mock implementation of service.ComparisonService.
type MockComparisonService struct {
	mock.Mock
}

func (m *MockComparisonService) Compare(ctx context.Context, input port.ExtractInput, providers []string) ([]service.ProviderOutcome, error) {
	args := m.Called(ctx, input, providers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ProviderOutcome), args.Error(1)
}
