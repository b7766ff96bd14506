package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"quoteflow/internal/service"
)

// MockCatalogReconciler is a mock implementation of service.CatalogReconciler.
type MockCatalogReconciler struct {
	mock.Mock
}

func (m *MockCatalogReconciler) Reconcile(ctx context.Context, input *service.ReconcileInput) (*service.ReconcileResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReconcileResult), args.Error(1)
}
