package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteflow/internal/domain"
)

func sample() *domain.CanonicalExtraction {
	lead := 14
	return &domain.CanonicalExtraction{
		SupplierName: "Acme Supply",
		QuoteDate:    "2024-01-15",
		Currency:     "CAD",
		LineItems: []domain.LineItem{{
			SupplierPartNumber: "BRK-100",
			Description:        "Bracket",
			QtyBreaks:          []domain.QtyBreak{{MinQty: 1, UnitPrice: 2.5}},
			LeadTimeDays:       &lead,
		}},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, Validate(sample()))
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CanonicalExtraction)
	}{
		{"missing supplier", func(e *domain.CanonicalExtraction) { e.SupplierName = "" }},
		{"no line items", func(e *domain.CanonicalExtraction) { e.LineItems = []domain.LineItem{} }},
		{"nil line items", func(e *domain.CanonicalExtraction) { e.LineItems = nil }},
		{"bad date", func(e *domain.CanonicalExtraction) { e.QuoteDate = "15/01/2024" }},
		{"lowercase currency", func(e *domain.CanonicalExtraction) { e.Currency = "cad" }},
		{"no qty breaks", func(e *domain.CanonicalExtraction) { e.LineItems[0].QtyBreaks = []domain.QtyBreak{} }},
		{"negative price", func(e *domain.CanonicalExtraction) { e.LineItems[0].QtyBreaks[0].UnitPrice = -1 }},
		{"negative lead time", func(e *domain.CanonicalExtraction) { n := -3; e.LineItems[0].LeadTimeDays = &n }},
		{"empty description", func(e *domain.CanonicalExtraction) { e.LineItems[0].Description = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := sample()
			tt.mutate(ext)
			assert.Error(t, Validate(ext))
		})
	}
}

func TestValidateJSON_Malformed(t *testing.T) {
	assert.Error(t, ValidateJSON([]byte(`{"supplier_name":`)))
}

func TestJSON_RoundTrips(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(JSON()), &m))
	assert.Equal(t, "CanonicalExtraction", m["title"])
}
