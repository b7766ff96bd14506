package docai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/documentai/v1"
	"google.golang.org/api/googleapi"

	"quoteflow/internal/config"
	"quoteflow/internal/domain"
	"quoteflow/internal/fetch"
	"quoteflow/internal/normalize"
	"quoteflow/internal/port"
	"quoteflow/internal/provider"
	"quoteflow/internal/schema"
	"quoteflow/internal/scoring"
)

var name = string(domain.ProviderDocumentAI)

type documentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Provider extracts quotes with a Google Document AI custom extractor. The
// processor must be trained with quote entity types (line_item, qty_break,
// supplier_name, ...); general-purpose processors yield no line items.
type Provider struct {
	processor     entityProcessor
	docs          documentFetcher
	processorName string
	logger        *zap.Logger
}

// New builds a Provider for the configured processor.
func New(ctx context.Context, cfg config.DocumentAIConfig, logger *zap.Logger) (*Provider, error) {
	switch {
	case cfg.ProjectID == "":
		return nil, domain.NewConfigError(name, "document_ai project_id is not set")
	case cfg.ProcessorID == "":
		return nil, domain.NewConfigError(name, "document_ai processor_id is not set")
	case cfg.Location == "":
		return nil, domain.NewConfigError(name, "document_ai location is not set")
	}
	proc, err := newServiceProcessor(ctx, cfg)
	if err != nil {
		return nil, &domain.ExtractionError{Kind: domain.KindConfiguration, Provider: name, Err: err}
	}
	docs := fetch.NewDownloader(cfg.Timeout, cfg.MaxDocumentBytes)
	return newProvider(proc, docs, cfg.ProcessorName(), logger), nil
}

func newProvider(proc entityProcessor, docs documentFetcher, processorName string, logger *zap.Logger) *Provider {
	return &Provider{
		processor:     proc,
		docs:          docs,
		processorName: processorName,
		logger:        logger.With(zap.String("provider", name)),
	}
}

func (p *Provider) Name() domain.ProviderName {
	return domain.ProviderDocumentAI
}

func (p *Provider) Extract(ctx context.Context, input port.ExtractInput) (*domain.ExtractionResult, error) {
	start := time.Now()
	log := p.logger.With(zap.String("document_id", input.DocumentID))
	log.Info("docai.extract.start", zap.String("processor", p.processorName))

	content, err := p.docs.Fetch(ctx, input.DocumentURL)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentTooLarge) {
			return nil, &domain.ExtractionError{Kind: domain.KindSuitability, Provider: name, DocumentID: input.DocumentID, Err: err}
		}
		return nil, domain.NewTransportError(name, input.DocumentID, err)
	}

	doc, err := p.processor.Process(ctx, content, "application/pdf")
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
			retryAfter := provider.ParseRetryAfterHeader(gErr.Header.Get("Retry-After"))
			err = provider.NewRateLimitError(name, err, retryAfter)
		}
		log.Warn("docai.extract.process_error", zap.Error(err))
		return nil, domain.NewTransportError(name, input.DocumentID, err)
	}

	ext, seen := assemble(doc)
	if len(ext.LineItems) == 0 {
		log.Warn("docai.extract.no_line_items", zap.Strings("entity_types", seen))
		return nil, domain.NewSuitabilityError(name, input.DocumentID, fmt.Sprintf(
			"processor %s recognized no quote line items (entity types found: %s); use a custom extractor trained on supplier quotes",
			p.processorName, describeTypes(seen)))
	}
	if err := schema.Validate(ext); err != nil {
		return nil, domain.NewSchemaError(name, input.DocumentID, 1, err)
	}

	raw, err := json.Marshal(struct {
		Processor string `json:"processor"`
		Entities  any    `json:"entities"`
	}{Processor: p.processorName, Entities: doc.Entities})
	if err != nil {
		raw = []byte(`{}`)
	}

	elapsed := time.Since(start).Milliseconds()
	log.Info("docai.extract.done", zap.Int64("elapsed_ms", elapsed), zap.Int("line_items", len(ext.LineItems)))
	return &domain.ExtractionResult{
		Provider:   domain.ProviderDocumentAI,
		Raw:        raw,
		Normalized: *ext,
		Metrics:    scoring.CalculateAccuracyMetrics(ext, elapsed, nil),
	}, nil
}

// assemble walks the entity tree once and builds a normalized extraction. It
// also returns the distinct entity types seen, for diagnostics.
func assemble(doc *documentai.GoogleCloudDocumentaiV1Document) (*domain.CanonicalExtraction, []string) {
	ext := &domain.CanonicalExtraction{LineItems: []domain.LineItem{}}
	header := map[string]headerEntity{}
	var items []lineItemEntity
	seen := map[string]bool{}

	for _, e := range doc.Entities {
		if e == nil {
			continue
		}
		seen[typeName(e)] = true
		switch v := classify(e).(type) {
		case headerEntity:
			if _, dup := header[v.field]; !dup {
				header[v.field] = v
			}
		case lineItemEntity:
			items = append(items, v)
		case qtyBreakEntity, unknownEntity:
			// Qty breaks only count when nested under a line item.
		}
	}

	ext.SupplierName = header["supplier_name"].text
	if ext.SupplierName == "" {
		ext.SupplierName = domain.UnknownSupplier
	}
	ext.QuoteNumber = header["quote_number"].text
	ext.PaymentTerms = header["payment_terms"].text
	ext.Notes = header["notes"].text

	if h, ok := header["quote_date"]; ok {
		ext.QuoteDate = h.date
		if ext.QuoteDate == "" {
			ext.QuoteDate, _ = normalize.NormalizeDate(h.text)
		}
	}
	if h, ok := header["valid_until"]; ok {
		ext.ValidUntil = h.date
		if ext.ValidUntil == "" {
			ext.ValidUntil, _ = normalize.ComputeValidUntil(ext.QuoteDate, h.text)
		}
	}

	var priceCurrency string
	for _, it := range items {
		li, ok := toLineItem(it)
		if !ok {
			continue
		}
		if it.price != nil && it.price.currency != "" && priceCurrency == "" {
			priceCurrency = it.price.currency
		}
		ext.LineItems = append(ext.LineItems, li)
	}

	currency := header["currency"].text
	if m := header["currency"].money; m != nil && m.currency != "" {
		currency = m.currency
	}
	if currency == "" {
		currency = priceCurrency
	}
	ext.Currency, _ = normalize.NormalizeCurrency(currency)

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return ext, types
}

// toLineItem accepts an item only when part number and description resolved.
func toLineItem(it lineItemEntity) (domain.LineItem, bool) {
	li := domain.LineItem{
		SupplierPartNumber: it.fields["supplier_part_number"],
		Description:        it.fields["description"],
		UOM:                it.fields["uom"],
		LeadTimeDays:       intField(it.fields["lead_time_days"]),
		MOQ:                intField(it.fields["moq"]),
	}
	if li.SupplierPartNumber == "" || li.Description == "" {
		return domain.LineItem{}, false
	}

	li.QtyBreaks = toQtyBreaks(it.breaks)
	if len(li.QtyBreaks) == 0 && it.price != nil {
		li.QtyBreaks = []domain.QtyBreak{{MinQty: 1, UnitPrice: it.price.amount}}
	}
	if li.QtyBreaks == nil {
		li.QtyBreaks = []domain.QtyBreak{}
	}
	return li, true
}

func toQtyBreaks(breaks []qtyBreakEntity) []domain.QtyBreak {
	var out []domain.QtyBreak
	for _, qb := range breaks {
		if qb.unitPrice == nil {
			continue
		}
		minQty := 1.0
		if qb.minQty != nil {
			minQty = *qb.minQty
		}
		out = append(out, domain.QtyBreak{MinQty: minQty, UnitPrice: *qb.unitPrice})
	}
	return out
}

func intField(s string) *int {
	v, ok := normalize.ParseNumber(s)
	if !ok {
		return nil
	}
	n := int(math.Round(v))
	return &n
}

func describeTypes(types []string) string {
	if len(types) == 0 {
		return "none"
	}
	return strings.Join(types, ", ")
}
