package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
	"quoteflow/internal/provider"
	mockprovider "quoteflow/internal/provider/mock"
	"quoteflow/internal/repository/sqlstore"
	"quoteflow/internal/service"
	"quoteflow/mocks"
)

type reviewDeps struct {
	extractor  *mocks.MockExtractionService
	reconciler *mocks.MockCatalogReconciler
	repo       *mocks.MockExtractionRepo
	storage    *mocks.MockDocumentStorage
}

func newReviewService() (service.ReviewService, *reviewDeps) {
	d := &reviewDeps{
		extractor:  new(mocks.MockExtractionService),
		reconciler: new(mocks.MockCatalogReconciler),
		repo:       new(mocks.MockExtractionRepo),
		storage:    new(mocks.MockDocumentStorage),
	}
	svc := service.NewReviewService(d.extractor, d.reconciler, d.repo, d.storage,
		service.StorageLocation{Bucket: "quotes", PresignExpiry: 900}, zap.NewNop())
	return svc, d
}

func sampleResult() *domain.ExtractionResult {
	return &domain.ExtractionResult{
		Provider: domain.ProviderMock,
		Raw:      json.RawMessage(`{"source":"mock"}`),
		Normalized: domain.CanonicalExtraction{
			SupplierName: "Acme Fasteners",
			Currency:     "USD",
			LineItems:    []domain.LineItem{item("HX-1", domain.QtyBreak{MinQty: 1, UnitPrice: 0.5})},
		},
		Metrics: domain.AccuracyMetrics{TotalFields: 8, FieldsPresent: 3, CompletenessScore: 0.38, LineItemsCount: 1},
	}
}

func TestReviewService_SubmitWithURL(t *testing.T) {
	svc, d := newReviewService()
	input := port.ExtractInput{DocumentID: "doc-1", DocumentURL: "https://example.test/q.pdf"}
	d.extractor.On("Extract", mock.Anything, input, "mock").Return(sampleResult(), nil)
	d.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	rec, err := svc.Submit(context.Background(), &service.SubmitInput{
		DocumentID:  "doc-1",
		DocumentURL: "https://example.test/q.pdf",
		Provider:    "mock",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ExtractionStatusPendingReview, rec.Status)
	assert.Equal(t, domain.ProviderMock, rec.Provider)
	assert.JSONEq(t, `{"source":"mock"}`, string(rec.RawResponse))
	assert.JSONEq(t, string(rec.OriginalData), string(rec.NormalizedData))
	assert.Contains(t, string(rec.Metrics), `"completeness_score":0.38`)
	d.storage.AssertNotCalled(t, "GetPresignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewService_SubmitWithStorageKey(t *testing.T) {
	svc, d := newReviewService()
	d.storage.On("GetPresignedURL", mock.Anything, "quotes", "acme/q-17.pdf", int64(900)).
		Return("https://s3.test/quotes/acme/q-17.pdf?sig=1", nil)
	d.extractor.On("Extract", mock.Anything, port.ExtractInput{
		DocumentID:  "doc-17",
		DocumentURL: "https://s3.test/quotes/acme/q-17.pdf?sig=1",
	}, "").Return(sampleResult(), nil)
	d.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Submit(context.Background(), &service.SubmitInput{DocumentID: "doc-17", StorageKey: "acme/q-17.pdf"})
	require.NoError(t, err)
	d.extractor.AssertExpectations(t)
}

func TestReviewService_SubmitWithoutDocument(t *testing.T) {
	svc, d := newReviewService()

	_, err := svc.Submit(context.Background(), &service.SubmitInput{DocumentID: "doc-1"})
	assert.ErrorIs(t, err, domain.ErrMissingDocument)
	d.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
}

func TestReviewService_SubmitExtractionFailureNotPersisted(t *testing.T) {
	svc, d := newReviewService()
	providerErr := domain.NewSuitabilityError("document_ai", "doc-1", "no line items")
	d.extractor.On("Extract", mock.Anything, mock.Anything, "document_ai").Return(nil, providerErr)

	_, err := svc.Submit(context.Background(), &service.SubmitInput{
		DocumentID: "doc-1", DocumentURL: "https://example.test/q.pdf", Provider: "document_ai",
	})
	assert.Same(t, providerErr, err)
	d.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewService_ApproveUsesStoredItemsByDefault(t *testing.T) {
	svc, d := newReviewService()
	id := uuid.New()
	supplierID := uuid.New()
	stored, _ := json.Marshal(sampleResult().Normalized)
	d.repo.On("GetByID", mock.Anything, id).Return(&domain.ExtractionRecord{
		ID: id, Status: domain.ExtractionStatusPendingReview, NormalizedData: stored,
	}, nil)

	expected := &service.ReconcileResult{PartsCreated: 1, PricesCreated: 1, Errors: []service.RowError{}}
	d.reconciler.On("Reconcile", mock.Anything, mock.MatchedBy(func(in *service.ReconcileInput) bool {
		return *in.ExtractionID == id &&
			in.SupplierID == supplierID &&
			len(in.LineItems) == 1 &&
			in.LineItems[0].SupplierPartNumber == "HX-1" &&
			in.Header.SupplierName == "Acme Fasteners"
	})).Return(expected, nil)

	result, err := svc.Approve(context.Background(), &service.ApproveInput{ExtractionID: id, SupplierID: supplierID})
	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestReviewService_ApproveWithEditedItems(t *testing.T) {
	svc, d := newReviewService()
	id := uuid.New()
	stored, _ := json.Marshal(sampleResult().Normalized)
	d.repo.On("GetByID", mock.Anything, id).Return(&domain.ExtractionRecord{
		ID: id, Status: domain.ExtractionStatusPendingReview, NormalizedData: stored,
	}, nil)
	d.reconciler.On("Reconcile", mock.Anything, mock.MatchedBy(func(in *service.ReconcileInput) bool {
		return len(in.LineItems) == 2 && in.HeaderOverrides.Currency == "CAD"
	})).Return(&service.ReconcileResult{}, nil)

	_, err := svc.Approve(context.Background(), &service.ApproveInput{
		ExtractionID:    id,
		SupplierID:      uuid.New(),
		HeaderOverrides: service.HeaderOverrides{Currency: "CAD"},
		LineItems: []domain.LineItem{
			item("HX-1", domain.QtyBreak{MinQty: 1, UnitPrice: 0.5}),
			item("HX-2", domain.QtyBreak{MinQty: 1, UnitPrice: 0.7}),
		},
	})
	require.NoError(t, err)
	d.reconciler.AssertExpectations(t)
}

func TestReviewService_ApproveRejectsInvalidEditedItems(t *testing.T) {
	svc, d := newReviewService()
	id := uuid.New()
	stored, _ := json.Marshal(sampleResult().Normalized)
	d.repo.On("GetByID", mock.Anything, id).Return(&domain.ExtractionRecord{
		ID: id, Status: domain.ExtractionStatusPendingReview, NormalizedData: stored,
	}, nil)

	_, err := svc.Approve(context.Background(), &service.ApproveInput{
		ExtractionID: id,
		SupplierID:   uuid.New(),
		LineItems: []domain.LineItem{
			item("HX-1", domain.QtyBreak{MinQty: 1, UnitPrice: 0.5}),
			item("HX-2", domain.QtyBreak{MinQty: 1, UnitPrice: -0.7}),
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidLineItems)
	d.reconciler.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
}

func TestReviewService_RejectLosesRaceToApproval(t *testing.T) {
	svc, d := newReviewService()
	id := uuid.New()
	d.repo.On("GetByID", mock.Anything, id).Return(&domain.ExtractionRecord{ID: id, Status: domain.ExtractionStatusPendingReview}, nil)
	d.repo.On("ClaimPending", mock.Anything, id, domain.ExtractionStatusRejected).Return(domain.ErrExtractionNotPending)

	_, err := svc.Reject(context.Background(), id, "late")
	assert.ErrorIs(t, err, domain.ErrExtractionNotPending)
	d.repo.AssertNotCalled(t, "UpdateReview", mock.Anything, mock.Anything)
}

func TestReviewService_ApproveRequiresPending(t *testing.T) {
	svc, d := newReviewService()
	id := uuid.New()
	d.repo.On("GetByID", mock.Anything, id).Return(&domain.ExtractionRecord{ID: id, Status: domain.ExtractionStatusApproved}, nil)

	_, err := svc.Approve(context.Background(), &service.ApproveInput{ExtractionID: id, SupplierID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrExtractionNotPending)
	d.reconciler.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
}

func TestReviewService_Reject(t *testing.T) {
	svc, d := newReviewService()
	id := uuid.New()
	d.repo.On("GetByID", mock.Anything, id).Return(&domain.ExtractionRecord{ID: id, Status: domain.ExtractionStatusPendingReview}, nil)
	d.repo.On("ClaimPending", mock.Anything, id, domain.ExtractionStatusRejected).Return(nil)
	d.repo.On("UpdateReview", mock.Anything, mock.MatchedBy(func(r *domain.ExtractionRecord) bool {
		return r.Status == domain.ExtractionStatusRejected && r.ReviewerNotes == "wrong supplier" && r.ReviewedAt != nil
	})).Return(nil)

	rec, err := svc.Reject(context.Background(), id, "wrong supplier")
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionStatusRejected, rec.Status)
}

func TestReviewService_RejectNotFound(t *testing.T) {
	svc, d := newReviewService()
	id := uuid.New()
	d.repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrExtractionNotFound)

	_, err := svc.Reject(context.Background(), id, "")
	assert.True(t, errors.Is(err, domain.ErrExtractionNotFound))
}

func TestReviewWorkflow_SubmitThenApproveOnSQLite(t *testing.T) {
	db, err := sqlstore.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	extractions := sqlstore.NewExtractionRepo(db)
	partRepo := sqlstore.NewPartRepo(db)
	extractor, err := service.NewExtractionService(provider.NewRegistry(mockprovider.New(mockprovider.DefaultDelay)), "mock", nil, zap.NewNop())
	require.NoError(t, err)
	reconciler := service.NewCatalogReconciler(partRepo, sqlstore.NewPartPriceRepo(db), extractions, nil, zap.NewNop())
	svc := service.NewReviewService(extractor, reconciler, extractions, nil, service.StorageLocation{}, zap.NewNop())

	ctx := context.Background()
	rec, err := svc.Submit(ctx, &service.SubmitInput{DocumentID: "doc-e2e", DocumentURL: "https://example.test/q.pdf"})
	require.NoError(t, err)

	result, err := svc.Approve(ctx, &service.ApproveInput{ExtractionID: rec.ID, SupplierID: uuid.New(), Notes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.PartsCreated)
	assert.GreaterOrEqual(t, result.PricesCreated, 3)
	assert.Empty(t, result.Errors)

	approved, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionStatusApproved, approved.Status)
	assert.Equal(t, "ok", approved.ReviewerNotes)

	_, err = svc.Reject(ctx, rec.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrExtractionNotPending)
}

func TestReviewWorkflow_SecondImportOfSameExtractionWritesNothing(t *testing.T) {
	db, err := sqlstore.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	extractions := sqlstore.NewExtractionRepo(db)
	partRepo := sqlstore.NewPartRepo(db)
	priceRepo := sqlstore.NewPartPriceRepo(db)
	reconciler := service.NewCatalogReconciler(partRepo, priceRepo, extractions, nil, zap.NewNop())

	ctx := context.Background()
	rec := &domain.ExtractionRecord{DocumentID: "doc-twice", Provider: domain.ProviderMock}
	require.NoError(t, extractions.Create(ctx, rec))

	// Both callers saw pending_review before either wrote.
	input := &service.ReconcileInput{
		ExtractionID: &rec.ID,
		SupplierID:   uuid.New(),
		Header:       domain.CanonicalExtraction{SupplierName: "Acme", Currency: "USD", QuoteDate: "2024-01-15"},
		LineItems:    []domain.LineItem{item("HX-1", domain.QtyBreak{MinQty: 1, UnitPrice: 0.5})},
	}
	first, err := reconciler.Reconcile(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 1, first.PricesCreated)

	_, err = reconciler.Reconcile(ctx, input)
	assert.ErrorIs(t, err, domain.ErrExtractionNotPending)

	part, err := partRepo.GetBySKU(ctx, "SKU-HX-1")
	require.NoError(t, err)
	prices, err := priceRepo.ListByPart(ctx, part.ID)
	require.NoError(t, err)
	assert.Len(t, prices, 1)
}
