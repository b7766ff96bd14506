package port

import (
	"context"

	"github.com/google/uuid"

	"quoteflow/internal/domain"
)

// PartRepository defines the contract for catalog part persistence.
type PartRepository interface {
	// UpsertBySKU inserts a part or overwrites the descriptive fields and
	// attributes of the existing part with the same SKU. It returns the part id.
	UpsertBySKU(ctx context.Context, part *domain.Part) (uuid.UUID, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Part, error)
}

// PartPriceRepository defines the contract for supplier price persistence.
type PartPriceRepository interface {
	Create(ctx context.Context, price *domain.PartPrice) error
	ListByPart(ctx context.Context, partID uuid.UUID) ([]domain.PartPrice, error)
}

// ExtractionRepository defines the contract for extraction record persistence.
type ExtractionRepository interface {
	Create(ctx context.Context, rec *domain.ExtractionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error)
	List(ctx context.Context, status domain.ExtractionStatus, offset, limit int) ([]domain.ExtractionRecord, int, error)
	// ClaimPending moves a pending_review record to status in one conditional
	// write. It returns ErrExtractionNotPending when the record was already reviewed.
	ClaimPending(ctx context.Context, id uuid.UUID, status domain.ExtractionStatus) error
	// UpdateReview stores the reviewed data, status, notes and reviewed_at of rec.
	UpdateReview(ctx context.Context, rec *domain.ExtractionRecord) error
}
