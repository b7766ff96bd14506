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

type extractionRepo struct {
	db *sqlx.DB
}

// NewExtractionRepo creates a SQL-backed ExtractionRepository.
func NewExtractionRepo(db *sqlx.DB) port.ExtractionRepository {
	return &extractionRepo{db: db}
}

// jsonOrEmpty passes JSON as bytes so both jsonb and SQLite BLOB scans
// round-trip into json.RawMessage.
func jsonOrEmpty(b []byte) []byte {
	if len(b) == 0 {
		return []byte(`{}`)
	}
	return b
}

func (r *extractionRepo) Create(ctx context.Context, rec *domain.ExtractionRecord) error {
	now := time.Now().UTC()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = domain.ExtractionStatusPendingReview
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := r.db.Rebind(`INSERT INTO extractions (
		id, document_id, supplier_id, provider, status,
		raw_response, original_data, normalized_data, metrics,
		reviewer_notes, reviewed_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.DocumentID, rec.SupplierID, rec.Provider, rec.Status,
		jsonOrEmpty(rec.RawResponse), jsonOrEmpty(rec.OriginalData), jsonOrEmpty(rec.NormalizedData), jsonOrEmpty(rec.Metrics),
		rec.ReviewerNotes, rec.ReviewedAt, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("extractionRepo.Create: %w", err)
	}
	return nil
}

func (r *extractionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	var rec domain.ExtractionRecord
	err := r.db.GetContext(ctx, &rec, r.db.Rebind("SELECT * FROM extractions WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExtractionNotFound
		}
		return nil, fmt.Errorf("extractionRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *extractionRepo) List(ctx context.Context, status domain.ExtractionStatus, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	where := ""
	var args []any
	if status != "" {
		where = " WHERE status = ?"
		args = append(args, status)
	}

	var total int
	err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM extractions"+where), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.List count: %w", err)
	}

	var recs []domain.ExtractionRecord
	err = r.db.SelectContext(ctx, &recs,
		r.db.Rebind("SELECT * FROM extractions"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?"),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.List: %w", err)
	}
	return recs, total, nil
}

func (r *extractionRepo) UpdateReview(ctx context.Context, rec *domain.ExtractionRecord) error {
	rec.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`UPDATE extractions SET
		supplier_id = ?, status = ?, normalized_data = ?,
		reviewer_notes = ?, reviewed_at = ?, updated_at = ?
	WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query,
		rec.SupplierID, rec.Status, jsonOrEmpty(rec.NormalizedData),
		rec.ReviewerNotes, rec.ReviewedAt, rec.UpdatedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("extractionRepo.UpdateReview: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("extractionRepo.UpdateReview rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrExtractionNotFound
	}
	return nil
}

func (r *extractionRepo) ClaimPending(ctx context.Context, id uuid.UUID, status domain.ExtractionStatus) error {
	query := r.db.Rebind(`UPDATE extractions SET status = ?, updated_at = ?
	WHERE id = ? AND status = ?`)

	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id, domain.ExtractionStatusPendingReview)
	if err != nil {
		return fmt.Errorf("extractionRepo.ClaimPending: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("extractionRepo.ClaimPending rows: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrExtractionNotPending
	}
	return nil
}
