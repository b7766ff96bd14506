package mock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
	"quoteflow/internal/schema"
	"quoteflow/internal/scoring"
)

// DefaultDelay simulates the latency of a real backend.
const DefaultDelay = 500 * time.Millisecond

// Provider returns a fixed, fully-populated quote for any document. It is
// used for demos and for exercising the review flow without vendor credentials.
type Provider struct {
	delay time.Duration
}

// New creates a mock provider. Delays shorter than DefaultDelay are raised to it.
func New(delay time.Duration) *Provider {
	if delay < DefaultDelay {
		delay = DefaultDelay
	}
	return &Provider{delay: delay}
}

func (p *Provider) Name() domain.ProviderName {
	return domain.ProviderMock
}

func (p *Provider) Extract(ctx context.Context, input port.ExtractInput) (*domain.ExtractionResult, error) {
	start := time.Now()

	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, domain.NewTransportError(string(domain.ProviderMock), input.DocumentID, ctx.Err())
	case <-timer.C:
	}

	ext := sampleQuote()
	if err := schema.Validate(&ext); err != nil {
		return nil, domain.NewSchemaError(string(domain.ProviderMock), input.DocumentID, 1, err)
	}

	raw, err := json.Marshal(ext)
	if err != nil {
		return nil, eris.Wrap(err, "mock: marshal sample")
	}

	elapsed := time.Since(start).Milliseconds()
	return &domain.ExtractionResult{
		Provider:   domain.ProviderMock,
		Raw:        raw,
		Normalized: ext,
		Metrics:    scoring.CalculateAccuracyMetrics(&ext, elapsed, nil),
	}, nil
}

func intPtr(v int) *int { return &v }

func sampleQuote() domain.CanonicalExtraction {
	return domain.CanonicalExtraction{
		SupplierName: "Northwind Industrial Supply",
		QuoteNumber:  "NW-Q-24017",
		QuoteDate:    "2024-01-15",
		Currency:     "CAD",
		ValidUntil:   "2024-02-14",
		PaymentTerms: "Net 30",
		Notes:        "Prices FOB Mississauga. Freight billed separately.",
		LineItems: []domain.LineItem{
			{
				SupplierPartNumber: "HX-M8-25-SS",
				Description:        "Hex bolt M8 x 25mm, stainless 316",
				UOM:                "EA",
				QtyBreaks: []domain.QtyBreak{
					{MinQty: 1, UnitPrice: 0.42},
					{MinQty: 100, UnitPrice: 0.36},
					{MinQty: 1000, UnitPrice: 0.29},
				},
				LeadTimeDays: intPtr(5),
				MOQ:          intPtr(1),
			},
			{
				SupplierPartNumber: "BRG-6204-2RS",
				Description:        "Deep groove ball bearing 6204-2RS",
				UOM:                "EA",
				QtyBreaks: []domain.QtyBreak{
					{MinQty: 1, UnitPrice: 6.80},
					{MinQty: 50, UnitPrice: 5.95},
				},
				LeadTimeDays: intPtr(10),
				MOQ:          intPtr(10),
			},
			{
				SupplierPartNumber: "TB-AL-6061-2",
				Description:        "Aluminum round tube 6061-T6, 2in OD, 12ft",
				UOM:                "LEN",
				QtyBreaks: []domain.QtyBreak{
					{MinQty: 1, UnitPrice: 58.00},
				},
				LeadTimeDays: intPtr(21),
			},
		},
	}
}
