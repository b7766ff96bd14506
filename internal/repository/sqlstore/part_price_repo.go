package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
)

type partPriceRepo struct {
	db *sqlx.DB
}

// NewPartPriceRepo creates a SQL-backed PartPriceRepository.
func NewPartPriceRepo(db *sqlx.DB) port.PartPriceRepository {
	return &partPriceRepo{db: db}
}

func (r *partPriceRepo) Create(ctx context.Context, price *domain.PartPrice) error {
	if price.ID == uuid.Nil {
		price.ID = uuid.New()
	}
	price.CreatedAt = time.Now().UTC()

	query := r.db.Rebind(`INSERT INTO part_prices (
		id, part_id, supplier_id, unit_price, currency, moq,
		lead_time_days, valid_from, valid_through, extraction_id, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		price.ID, price.PartID, price.SupplierID, price.UnitPrice, price.Currency, price.MOQ,
		price.LeadTimeDays, price.ValidFrom, price.ValidThrough, price.ExtractionID, price.CreatedAt)
	if err != nil {
		return fmt.Errorf("partPriceRepo.Create: %w", err)
	}
	return nil
}

func (r *partPriceRepo) ListByPart(ctx context.Context, partID uuid.UUID) ([]domain.PartPrice, error) {
	var prices []domain.PartPrice
	err := r.db.SelectContext(ctx, &prices,
		r.db.Rebind(`SELECT * FROM part_prices WHERE part_id = ? ORDER BY moq ASC, created_at ASC`), partID)
	if err != nil {
		return nil, fmt.Errorf("partPriceRepo.ListByPart: %w", err)
	}
	return prices, nil
}
