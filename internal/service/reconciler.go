package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quoteflow/internal/domain"
	"quoteflow/internal/metrics"
	"quoteflow/internal/normalize"
	"quoteflow/internal/port"
)

// DerivedSKUPrefix is prepended to the supplier part number when a reviewer
// has not assigned a SKU.
const DerivedSKUPrefix = "SKU-"

// HeaderOverrides replace extraction header values for one import.
type HeaderOverrides struct {
	Currency   string `json:"currency,omitempty"`
	QuoteDate  string `json:"quote_date,omitempty"`
	ValidUntil string `json:"valid_until,omitempty"`
}

// ReconcileInput is the DTO for importing reviewed line items into the catalog.
type ReconcileInput struct {
	ExtractionID    *uuid.UUID
	SupplierID      uuid.UUID
	LineItems       []domain.LineItem
	Header          domain.CanonicalExtraction
	HeaderOverrides HeaderOverrides
	ReviewerNotes   string
}

// RowError reports one failed part or price write. Row is 1-based.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ReconcileResult aggregates one import.
type ReconcileResult struct {
	PartsCreated  int        `json:"parts_created"`
	PricesCreated int        `json:"prices_created"`
	Errors        []RowError `json:"errors"`
}

// CatalogReconciler turns reviewed line items into parts and supplier prices.
type CatalogReconciler interface {
	// Reconcile writes every row independently. Row failures are reported in
	// the result; the returned error covers invalid overrides, an extraction
	// that is no longer pending, and the final extraction record update.
	Reconcile(ctx context.Context, input *ReconcileInput) (*ReconcileResult, error)
}

type catalogReconciler struct {
	partRepo       port.PartRepository
	priceRepo      port.PartPriceRepository
	extractionRepo port.ExtractionRepository
	metrics        *metrics.Recorder
	logger         *zap.Logger
	now            func() time.Time
}

// NewCatalogReconciler creates a new CatalogReconciler.
func NewCatalogReconciler(
	partRepo port.PartRepository,
	priceRepo port.PartPriceRepository,
	extractionRepo port.ExtractionRepository,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) CatalogReconciler {
	return &catalogReconciler{
		partRepo:       partRepo,
		priceRepo:      priceRepo,
		extractionRepo: extractionRepo,
		metrics:        recorder,
		logger:         logger,
		now:            time.Now,
	}
}

// priceTerms are the header-level values copied onto every price row.
type priceTerms struct {
	header       domain.CanonicalExtraction
	validFrom    time.Time
	validThrough *time.Time
}

func (r *catalogReconciler) Reconcile(ctx context.Context, input *ReconcileInput) (*ReconcileResult, error) {
	terms, err := r.resolveTerms(input)
	if err != nil {
		return nil, err
	}
	if input.ExtractionID != nil {
		if err := r.extractionRepo.ClaimPending(ctx, *input.ExtractionID, domain.ExtractionStatusApproved); err != nil {
			return nil, err
		}
	}

	result := &ReconcileResult{Errors: []RowError{}}
	parts := make(map[uuid.UUID]struct{})
	imported := make([]domain.LineItem, 0, len(input.LineItems))

	for i := range input.LineItems {
		row := i + 1
		item := &input.LineItems[i]
		sku := catalogKey(item)
		if sku == "" {
			result.Errors = append(result.Errors, RowError{Row: row, Message: "line item has neither a sku nor a supplier part number"})
			continue
		}

		partID, err := r.partRepo.UpsertBySKU(ctx, buildPart(sku, item))
		if err != nil {
			r.logger.Warn("reconcile.part_failed", zap.Int("row", row), zap.String("sku", sku), zap.Error(err))
			result.Errors = append(result.Errors, RowError{Row: row, Message: fmt.Sprintf("part %s: %v", sku, err)})
			continue
		}
		parts[partID] = struct{}{}

		landed := *item
		landed.QtyBreaks = make([]domain.QtyBreak, 0, len(item.QtyBreaks))
		for _, qb := range item.QtyBreaks {
			price := &domain.PartPrice{
				PartID:       partID,
				SupplierID:   input.SupplierID,
				UnitPrice:    qb.UnitPrice,
				Currency:     terms.header.Currency,
				MOQ:          qb.MinQty,
				LeadTimeDays: item.LeadTimeDays,
				ValidFrom:    terms.validFrom,
				ValidThrough: terms.validThrough,
				ExtractionID: input.ExtractionID,
			}
			if err := r.priceRepo.Create(ctx, price); err != nil {
				r.logger.Warn("reconcile.price_failed", zap.Int("row", row), zap.String("sku", sku), zap.Error(err))
				result.Errors = append(result.Errors, RowError{
					Row:     row,
					Message: fmt.Sprintf("price for %s at min qty %g: %v", sku, qb.MinQty, err),
				})
				continue
			}
			result.PricesCreated++
			landed.QtyBreaks = append(landed.QtyBreaks, qb)
		}
		imported = append(imported, landed)
	}
	result.PartsCreated = len(parts)

	r.metrics.ObserveReconcile(result.PartsCreated, result.PricesCreated, len(result.Errors))
	r.logger.Info("reconcile.completed",
		zap.String("supplier_id", input.SupplierID.String()),
		zap.Int("rows", len(input.LineItems)),
		zap.Int("parts_created", result.PartsCreated),
		zap.Int("prices_created", result.PricesCreated),
		zap.Int("errors", len(result.Errors)),
	)

	if input.ExtractionID != nil {
		if err := r.markApproved(ctx, input, terms.header, imported); err != nil {
			return result, err
		}
	}
	return result, nil
}

// markApproved rewrites the stored extraction so it matches what landed in the catalog.
func (r *catalogReconciler) markApproved(ctx context.Context, input *ReconcileInput, header domain.CanonicalExtraction, imported []domain.LineItem) error {
	rec, err := r.extractionRepo.GetByID(ctx, *input.ExtractionID)
	if err != nil {
		return fmt.Errorf("reconcile: loading extraction: %w", err)
	}

	header.LineItems = imported
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("reconcile: encoding imported data: %w", err)
	}

	now := r.now().UTC()
	supplierID := input.SupplierID
	rec.SupplierID = &supplierID
	rec.Status = domain.ExtractionStatusApproved
	rec.NormalizedData = data
	rec.ReviewerNotes = input.ReviewerNotes
	rec.ReviewedAt = &now

	if err := r.extractionRepo.UpdateReview(ctx, rec); err != nil {
		return fmt.Errorf("reconcile: updating extraction: %w", err)
	}
	return nil
}

// resolveTerms applies overrides on top of the extraction header.
func (r *catalogReconciler) resolveTerms(input *ReconcileInput) (*priceTerms, error) {
	header := input.Header
	header.LineItems = nil
	o := input.HeaderOverrides

	if o.Currency != "" {
		code, ok := normalize.NormalizeCurrency(o.Currency)
		if !ok {
			return nil, fmt.Errorf("currency %q: %w", o.Currency, domain.ErrInvalidOverride)
		}
		header.Currency = code
	}
	if o.QuoteDate != "" {
		d, ok := normalize.NormalizeDate(o.QuoteDate)
		if !ok {
			return nil, fmt.Errorf("quote_date %q: %w", o.QuoteDate, domain.ErrInvalidOverride)
		}
		header.QuoteDate = d
	}
	if o.ValidUntil != "" {
		d, ok := normalize.ComputeValidUntil(header.QuoteDate, o.ValidUntil)
		if !ok {
			return nil, fmt.Errorf("valid_until %q: %w", o.ValidUntil, domain.ErrInvalidOverride)
		}
		header.ValidUntil = d
	}

	terms := &priceTerms{validFrom: r.now().UTC().Truncate(24 * time.Hour)}
	if t, err := time.Parse(normalize.ISODateLayout, header.QuoteDate); err == nil {
		terms.validFrom = t
	} else {
		header.QuoteDate = ""
	}
	if t, err := time.Parse(normalize.ISODateLayout, header.ValidUntil); err == nil {
		terms.validThrough = &t
	}
	terms.header = header
	return terms, nil
}

func catalogKey(item *domain.LineItem) string {
	if sku := strings.TrimSpace(item.SKU); sku != "" {
		return sku
	}
	if pn := strings.TrimSpace(item.SupplierPartNumber); pn != "" {
		return DerivedSKUPrefix + pn
	}
	return ""
}

func buildPart(sku string, item *domain.LineItem) *domain.Part {
	attrs := make(map[string]any, len(item.Attributes)+3)
	for k, v := range item.Attributes {
		attrs[k] = v
	}
	if item.UOM != "" {
		attrs["uom"] = item.UOM
	}
	if item.MOQ != nil {
		attrs["moq"] = *item.MOQ
	}
	if item.LeadTimeDays != nil {
		attrs["lead_time_days"] = *item.LeadTimeDays
	}
	// map[string]any of JSON-decoded values always marshals
	raw, _ := json.Marshal(attrs)

	return &domain.Part{
		SKU:                sku,
		Name:               item.Description,
		Description:        item.Description,
		SupplierPartNumber: item.SupplierPartNumber,
		ManufacturerID:     item.ManufacturerID,
		CatalogCode:        item.CatalogCode,
		SubCatalogCode:     item.SubCatalogCode,
		Attributes:         raw,
	}
}
