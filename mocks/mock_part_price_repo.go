package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"quoteflow/internal/domain"
)

// MockPartPriceRepo is a mock implementation of port.PartPriceRepository.
type MockPartPriceRepo struct {
	mock.Mock
}

func (m *MockPartPriceRepo) Create(ctx context.Context, price *domain.PartPrice) error {
	args := m.Called(ctx, price)
	return args.Error(0)
}

func (m *MockPartPriceRepo) ListByPart(ctx context.Context, partID uuid.UUID) ([]domain.PartPrice, error) {
	args := m.Called(ctx, partID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PartPrice), args.Error(1)
}
