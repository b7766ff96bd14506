package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CanonicalExtraction is the provider-independent shape of a supplier quote.
// Optional string fields use the empty string for "absent".
type CanonicalExtraction struct {
	SupplierName string     `json:"supplier_name"`
	QuoteNumber  string     `json:"quote_number,omitempty"`
	QuoteDate    string     `json:"quote_date,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	ValidUntil   string     `json:"valid_until,omitempty"`
	PaymentTerms string     `json:"payment_terms,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	LineItems    []LineItem `json:"line_items"`
}

// LineItem is one quoted part. The catalog fields (CatalogCode through
// Attributes) are normally filled in by a reviewer before approval.
type LineItem struct {
	SupplierPartNumber string         `json:"supplier_part_number"`
	Description        string         `json:"description"`
	UOM                string         `json:"uom,omitempty"`
	QtyBreaks          []QtyBreak     `json:"qty_breaks"`
	LeadTimeDays       *int           `json:"lead_time_days,omitempty"`
	MOQ                *int           `json:"moq,omitempty"`
	CatalogCode        string         `json:"catalog_code,omitempty"`
	SubCatalogCode     string         `json:"sub_catalog_code,omitempty"`
	ManufacturerID     string         `json:"manufacturer_id,omitempty"`
	SKU                string         `json:"sku,omitempty"`
	Attributes         map[string]any `json:"attributes,omitempty"`
}

// QtyBreak is a price tier that applies from MinQty upward.
type QtyBreak struct {
	MinQty    float64 `json:"min_qty"`
	UnitPrice float64 `json:"unit_price"`
}

// TokenUsage records LLM token consumption for one extraction.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AccuracyMetrics is a coarse quality signal attached to every extraction.
type AccuracyMetrics struct {
	FieldsPresent     int         `json:"fields_present"`
	TotalFields       int         `json:"total_fields"`
	CompletenessScore float64     `json:"completeness_score"`
	LineItemsCount    int         `json:"line_items_count"`
	ResponseTimeMs    int64       `json:"response_time_ms"`
	TokenUsage        *TokenUsage `json:"token_usage,omitempty"`
}

// ExtractionResult is produced once per extraction attempt and not modified afterwards.
type ExtractionResult struct {
	Provider   ProviderName        `json:"provider"`
	Raw        json.RawMessage     `json:"raw"`
	Normalized CanonicalExtraction `json:"normalized"`
	Metrics    AccuracyMetrics     `json:"metrics"`
}

// ExtractionRecord is a persisted extraction awaiting or past human review.
// OriginalData keeps the machine output; NormalizedData is overwritten with
// what was actually imported when the record is approved.
type ExtractionRecord struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	DocumentID     string           `db:"document_id" json:"document_id"`
	SupplierID     *uuid.UUID       `db:"supplier_id" json:"supplier_id"`
	Provider       ProviderName     `db:"provider" json:"provider"`
	Status         ExtractionStatus `db:"status" json:"status"`
	RawResponse    json.RawMessage  `db:"raw_response" json:"raw_response"`
	OriginalData   json.RawMessage  `db:"original_data" json:"original_data"`
	NormalizedData json.RawMessage  `db:"normalized_data" json:"normalized_data"`
	Metrics        json.RawMessage  `db:"metrics" json:"metrics"`
	ReviewerNotes  string           `db:"reviewer_notes" json:"reviewer_notes"`
	ReviewedAt     *time.Time       `db:"reviewed_at" json:"reviewed_at"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// Part is a catalog entry keyed by SKU.
type Part struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	SKU                string          `db:"sku" json:"sku"`
	Name               string          `db:"name" json:"name"`
	Description        string          `db:"description" json:"description"`
	SupplierPartNumber string          `db:"supplier_part_number" json:"supplier_part_number"`
	ManufacturerID     string          `db:"manufacturer_id" json:"manufacturer_id"`
	CatalogCode        string          `db:"catalog_code" json:"catalog_code"`
	SubCatalogCode     string          `db:"sub_catalog_code" json:"sub_catalog_code"`
	Attributes         json.RawMessage `db:"attributes" json:"attributes"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// PartPrice is one supplier price for a part over [ValidFrom, ValidThrough).
// A nil ValidThrough is open-ended.
type PartPrice struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PartID       uuid.UUID  `db:"part_id" json:"part_id"`
	SupplierID   uuid.UUID  `db:"supplier_id" json:"supplier_id"`
	UnitPrice    float64    `db:"unit_price" json:"unit_price"`
	Currency     string     `db:"currency" json:"currency"`
	MOQ          float64    `db:"moq" json:"moq"`
	LeadTimeDays *int       `db:"lead_time_days" json:"lead_time_days"`
	ValidFrom    time.Time  `db:"valid_from" json:"valid_from"`
	ValidThrough *time.Time `db:"valid_through" json:"valid_through"`
	ExtractionID *uuid.UUID `db:"extraction_id" json:"extraction_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
