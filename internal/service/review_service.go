package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
	"quoteflow/internal/scoring"
)

// SubmitInput is the DTO for extracting a document into a reviewable record.
// Exactly one of DocumentURL and StorageKey locates the document.
type SubmitInput struct {
	DocumentID  string
	DocumentURL string
	StorageKey  string
	Provider    string
	SupplierID  *uuid.UUID
}

// ApproveInput is the DTO for approving a pending extraction. Nil LineItems
// imports the stored normalized line items unchanged; edited items must pass
// scoring.ValidateLineItems.
type ApproveInput struct {
	ExtractionID    uuid.UUID
	SupplierID      uuid.UUID
	LineItems       []domain.LineItem
	HeaderOverrides HeaderOverrides
	Notes           string
}

// ReviewService defines the human-review workflow around extractions.
type ReviewService interface {
	Submit(ctx context.Context, input *SubmitInput) (*domain.ExtractionRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error)
	List(ctx context.Context, status domain.ExtractionStatus, offset, limit int) ([]domain.ExtractionRecord, int, error)
	Approve(ctx context.Context, input *ApproveInput) (*ReconcileResult, error)
	Reject(ctx context.Context, id uuid.UUID, notes string) (*domain.ExtractionRecord, error)
}

// StorageLocation names the bucket that holds uploaded quote documents.
type StorageLocation struct {
	Bucket        string
	PresignExpiry int64
}

type reviewService struct {
	extractor  ExtractionService
	reconciler CatalogReconciler
	repo       port.ExtractionRepository
	storage    port.DocumentStorage
	location   StorageLocation
	logger     *zap.Logger
}

// NewReviewService creates a new ReviewService. storage may be nil, in which
// case only document URLs are accepted.
func NewReviewService(
	extractor ExtractionService,
	reconciler CatalogReconciler,
	repo port.ExtractionRepository,
	storage port.DocumentStorage,
	location StorageLocation,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		extractor:  extractor,
		reconciler: reconciler,
		repo:       repo,
		storage:    storage,
		location:   location,
		logger:     logger,
	}
}

func (s *reviewService) Submit(ctx context.Context, input *SubmitInput) (*domain.ExtractionRecord, error) {
	url, err := s.resolveURL(ctx, input)
	if err != nil {
		return nil, err
	}

	docID := input.DocumentID
	if docID == "" {
		docID = uuid.New().String()
	}

	result, err := s.extractor.Extract(ctx, port.ExtractInput{DocumentID: docID, DocumentURL: url}, input.Provider)
	if err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(result.Normalized)
	if err != nil {
		return nil, fmt.Errorf("encoding normalized extraction: %w", err)
	}
	metrics, err := json.Marshal(result.Metrics)
	if err != nil {
		return nil, fmt.Errorf("encoding extraction metrics: %w", err)
	}

	rec := &domain.ExtractionRecord{
		DocumentID:     docID,
		SupplierID:     input.SupplierID,
		Provider:       result.Provider,
		Status:         domain.ExtractionStatusPendingReview,
		RawResponse:    result.Raw,
		OriginalData:   normalized,
		NormalizedData: normalized,
		Metrics:        metrics,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("review.submitted",
		zap.String("extraction_id", rec.ID.String()),
		zap.String("document_id", docID),
		zap.String("provider", string(rec.Provider)),
	)
	return rec, nil
}

func (s *reviewService) resolveURL(ctx context.Context, input *SubmitInput) (string, error) {
	if input.DocumentURL != "" {
		return input.DocumentURL, nil
	}
	if input.StorageKey == "" {
		return "", domain.ErrMissingDocument
	}
	if s.storage == nil {
		return "", domain.NewConfigError("", "document storage is not configured")
	}
	url, err := s.storage.GetPresignedURL(ctx, s.location.Bucket, input.StorageKey, s.location.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", input.StorageKey, err)
	}
	return url, nil
}

func (s *reviewService) Get(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *reviewService) List(ctx context.Context, status domain.ExtractionStatus, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	return s.repo.List(ctx, status, offset, limit)
}

func (s *reviewService) Approve(ctx context.Context, input *ApproveInput) (*ReconcileResult, error) {
	rec, err := s.pending(ctx, input.ExtractionID)
	if err != nil {
		return nil, err
	}

	var header domain.CanonicalExtraction
	if err := json.Unmarshal(rec.NormalizedData, &header); err != nil {
		return nil, fmt.Errorf("decoding stored extraction %s: %w", rec.ID, err)
	}

	items := header.LineItems
	if input.LineItems != nil {
		if !scoring.ValidateLineItems(&domain.CanonicalExtraction{LineItems: input.LineItems}) {
			return nil, fmt.Errorf("edited line items: %w", domain.ErrInvalidLineItems)
		}
		items = input.LineItems
	}

	id := rec.ID
	result, err := s.reconciler.Reconcile(ctx, &ReconcileInput{
		ExtractionID:    &id,
		SupplierID:      input.SupplierID,
		LineItems:       items,
		Header:          header,
		HeaderOverrides: input.HeaderOverrides,
		ReviewerNotes:   input.Notes,
	})
	if err != nil {
		return result, err
	}

	s.logger.Info("review.approved",
		zap.String("extraction_id", id.String()),
		zap.Int("parts_created", result.PartsCreated),
		zap.Int("prices_created", result.PricesCreated),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *reviewService) Reject(ctx context.Context, id uuid.UUID, notes string) (*domain.ExtractionRecord, error) {
	rec, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClaimPending(ctx, id, domain.ExtractionStatusRejected); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec.Status = domain.ExtractionStatusRejected
	rec.ReviewerNotes = notes
	rec.ReviewedAt = &now
	if err := s.repo.UpdateReview(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("review.rejected", zap.String("extraction_id", id.String()))
	return rec, nil
}

func (s *reviewService) pending(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.ExtractionStatusPendingReview {
		return nil, domain.ErrExtractionNotPending
	}
	return rec, nil
}
