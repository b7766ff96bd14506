package scoring

import (
	"math"
	"strings"

	"quoteflow/internal/domain"
)

// TotalFields is the completeness denominator: six optional header fields
// plus the supplier-name and line-items checks.
const TotalFields = 8

// CalculateAccuracyMetrics scores how much of the canonical header an
// extraction managed to fill in.
func CalculateAccuracyMetrics(ext *domain.CanonicalExtraction, responseTimeMs int64, usage *domain.TokenUsage) domain.AccuracyMetrics {
	present := 0
	for _, v := range []string{
		ext.QuoteNumber,
		ext.QuoteDate,
		ext.Currency,
		ext.ValidUntil,
		ext.PaymentTerms,
		ext.Notes,
	} {
		if strings.TrimSpace(v) != "" {
			present++
		}
	}
	if strings.TrimSpace(ext.SupplierName) != "" {
		present++
	}
	if len(ext.LineItems) > 0 {
		present++
	}

	score := math.Round(float64(present)/TotalFields*100) / 100
	score = math.Max(0, math.Min(1, score))

	return domain.AccuracyMetrics{
		FieldsPresent:     present,
		TotalFields:       TotalFields,
		CompletenessScore: score,
		LineItemsCount:    len(ext.LineItems),
		ResponseTimeMs:    responseTimeMs,
		TokenUsage:        usage,
	}
}

// ValidateLineItems reports whether every line item is importable. An
// extraction with no line items passes; the schema enforces a non-empty list.
func ValidateLineItems(ext *domain.CanonicalExtraction) bool {
	for i := range ext.LineItems {
		item := &ext.LineItems[i]
		if strings.TrimSpace(item.SupplierPartNumber) == "" || strings.TrimSpace(item.Description) == "" {
			return false
		}
		if len(item.QtyBreaks) == 0 {
			return false
		}
		for _, qb := range item.QtyBreaks {
			if qb.MinQty < 0 || qb.UnitPrice < 0 {
				return false
			}
		}
	}
	return true
}
