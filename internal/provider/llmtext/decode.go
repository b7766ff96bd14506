package llmtext

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"quoteflow/internal/domain"
	"quoteflow/internal/normalize"
)

// llmQuote mirrors the canonical schema with every field nullable, which is
// what the model is told to produce.
type llmQuote struct {
	SupplierName *string       `json:"supplier_name"`
	QuoteNumber  *string       `json:"quote_number"`
	QuoteDate    *string       `json:"quote_date"`
	Currency     *string       `json:"currency"`
	ValidUntil   *string       `json:"valid_until"`
	PaymentTerms *string       `json:"payment_terms"`
	Notes        *string       `json:"notes"`
	LineItems    []llmLineItem `json:"line_items"`
}

type llmLineItem struct {
	SupplierPartNumber *string       `json:"supplier_part_number"`
	Description        *string       `json:"description"`
	UOM                *string       `json:"uom"`
	QtyBreaks          []llmQtyBreak `json:"qty_breaks"`
	LeadTimeDays       flexNumber    `json:"lead_time_days"`
	MOQ                flexNumber    `json:"moq"`
}

type llmQtyBreak struct {
	MinQty    flexNumber `json:"min_qty"`
	UnitPrice flexNumber `json:"unit_price"`
}

// flexNumber accepts a JSON number, a numeric string such as "$1,250.00", or null.
type flexNumber struct {
	Value float64
	Valid bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = flexNumber{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, ok := normalize.ParseNumber(s)
		*f = flexNumber{Value: v, Valid: ok}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexNumber{Value: v, Valid: true}
	return nil
}

func (f flexNumber) intPtr() *int {
	if !f.Valid {
		return nil
	}
	v := int(math.Round(f.Value))
	return &v
}

// decodeQuote parses model output and folds it into canonical form. Any JSON
// error is reported the same way as a schema violation.
func decodeQuote(content string) (*domain.CanonicalExtraction, error) {
	var q llmQuote
	if err := json.Unmarshal([]byte(content), &q); err != nil {
		return nil, eris.Wrap(err, "model output is not valid JSON")
	}

	ext := &domain.CanonicalExtraction{
		SupplierName: str(q.SupplierName),
		QuoteNumber:  str(q.QuoteNumber),
		PaymentTerms: str(q.PaymentTerms),
		Notes:        str(q.Notes),
		LineItems:    make([]domain.LineItem, 0, len(q.LineItems)),
	}
	ext.QuoteDate, _ = normalize.NormalizeDate(str(q.QuoteDate))
	ext.Currency, _ = normalize.NormalizeCurrency(str(q.Currency))
	ext.ValidUntil, _ = normalize.ComputeValidUntil(ext.QuoteDate, str(q.ValidUntil))

	for _, li := range q.LineItems {
		item := domain.LineItem{
			SupplierPartNumber: str(li.SupplierPartNumber),
			Description:        str(li.Description),
			UOM:                str(li.UOM),
			LeadTimeDays:       li.LeadTimeDays.intPtr(),
			MOQ:                li.MOQ.intPtr(),
			QtyBreaks:          make([]domain.QtyBreak, 0, len(li.QtyBreaks)),
		}
		for _, qb := range li.QtyBreaks {
			if !qb.UnitPrice.Valid {
				continue
			}
			minQty := 1.0
			if qb.MinQty.Valid {
				minQty = qb.MinQty.Value
			}
			item.QtyBreaks = append(item.QtyBreaks, domain.QtyBreak{MinQty: minQty, UnitPrice: qb.UnitPrice.Value})
		}
		ext.LineItems = append(ext.LineItems, item)
	}
	return ext, nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
