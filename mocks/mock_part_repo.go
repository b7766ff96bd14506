package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"quoteflow/internal/domain"
)

// MockPartRepo is a mock implementation of port.PartRepository.
type MockPartRepo struct {
	mock.Mock
}

func (m *MockPartRepo) UpsertBySKU(ctx context.Context, part *domain.Part) (uuid.UUID, error) {
	args := m.Called(ctx, part)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockPartRepo) GetBySKU(ctx context.Context, sku string) (*domain.Part, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Part), args.Error(1)
}
