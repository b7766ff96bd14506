package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDocumentStorage is a mock implementation of port.DocumentStorage.
type MockDocumentStorage struct {
	mock.Mock
}

func (m *MockDocumentStorage) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	args := m.Called(ctx, bucket, key, expirySeconds)
	return args.String(0), args.Error(1)
}
