package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
)

type partRepo struct {
	db *sqlx.DB
}

// NewPartRepo creates a SQL-backed PartRepository.
func NewPartRepo(db *sqlx.DB) port.PartRepository {
	return &partRepo{db: db}
}

func (r *partRepo) UpsertBySKU(ctx context.Context, part *domain.Part) (uuid.UUID, error) {
	now := time.Now().UTC()
	if part.ID == uuid.Nil {
		part.ID = uuid.New()
	}
	part.Attributes = jsonOrEmpty(part.Attributes)

	query := r.db.Rebind(`INSERT INTO parts (
		id, sku, name, description, supplier_part_number,
		manufacturer_id, catalog_code, sub_catalog_code, attributes,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (sku) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		supplier_part_number = excluded.supplier_part_number,
		manufacturer_id = excluded.manufacturer_id,
		catalog_code = excluded.catalog_code,
		sub_catalog_code = excluded.sub_catalog_code,
		attributes = excluded.attributes,
		updated_at = excluded.updated_at
	RETURNING id`)

	var id uuid.UUID
	err := r.db.GetContext(ctx, &id, query,
		part.ID, part.SKU, part.Name, part.Description, part.SupplierPartNumber,
		part.ManufacturerID, part.CatalogCode, part.SubCatalogCode, []byte(part.Attributes),
		now, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("partRepo.UpsertBySKU: %w", err)
	}
	part.ID = id
	part.UpdatedAt = now
	return id, nil
}

func (r *partRepo) GetBySKU(ctx context.Context, sku string) (*domain.Part, error) {
	var part domain.Part
	err := r.db.GetContext(ctx, &part, r.db.Rebind("SELECT * FROM parts WHERE sku = ?"), sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPartNotFound
		}
		return nil, fmt.Errorf("partRepo.GetBySKU: %w", err)
	}
	return &part, nil
}
