package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"quoteflow/internal/domain"
	"quoteflow/internal/export"
	"quoteflow/internal/handler"
	"quoteflow/internal/port"
	"quoteflow/internal/provider"
	"quoteflow/internal/service"
	"quoteflow/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newExtractionRouter() (*gin.Engine, *mocks.MockReviewService, *mocks.MockComparisonService) {
	review := new(mocks.MockReviewService)
	compare := new(mocks.MockComparisonService)
	h := handler.NewExtractionHandler(review, compare)

	r := gin.New()
	r.POST("/extractions", h.Create)
	r.GET("/extractions", h.List)
	r.POST("/extractions/compare", h.Compare)
	r.GET("/extractions/:id", h.GetByID)
	r.POST("/extractions/:id/approve", h.Approve)
	r.POST("/extractions/:id/reject", h.Reject)
	r.GET("/extractions/:id/export", h.Export)
	return r, review, compare
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestExtractionHandler_Create(t *testing.T) {
	r, review, _ := newExtractionRouter()
	rec := &domain.ExtractionRecord{ID: uuid.New(), Status: domain.ExtractionStatusPendingReview}
	review.On("Submit", mock.Anything, &service.SubmitInput{
		DocumentID:  "doc-1",
		DocumentURL: "https://example.test/q.pdf",
		Provider:    "llm_text",
	}).Return(rec, nil)

	w := do(r, http.MethodPost, "/extractions", map[string]any{
		"document_id":  "doc-1",
		"document_url": "https://example.test/q.pdf",
		"provider":     "llm_text",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode(t, w).Success)
	review.AssertExpectations(t)
}

func TestExtractionHandler_Create_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown provider", domain.NewConfigError("ocr", `unknown extraction provider "ocr"`), http.StatusBadRequest, "PROVIDER_CONFIGURATION"},
		{"suitability", domain.NewSuitabilityError("document_ai", "doc-1", "no line items"), http.StatusUnprocessableEntity, "PROVIDER_UNSUITABLE"},
		{"schema", domain.NewSchemaError("llm_text", "doc-1", 2, errors.New("bad")), http.StatusBadGateway, "EXTRACTION_INVALID"},
		{"transport", domain.NewTransportError("llm_text", "doc-1", errors.New("dial tcp")), http.StatusBadGateway, "PROVIDER_UNREACHABLE"},
		{"rate limited", domain.NewTransportError("llm_text", "doc-1", provider.NewRateLimitError("llm_text", errors.New("429"), 30)), http.StatusTooManyRequests, "PROVIDER_RATE_LIMITED"},
		{"missing document", domain.ErrMissingDocument, http.StatusBadRequest, "MISSING_DOCUMENT"},
		{"invalid line items", fmt.Errorf("edited: %w", domain.ErrInvalidLineItems), http.StatusBadRequest, "INVALID_LINE_ITEMS"},
		{"internal", errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, review, _ := newExtractionRouter()
			review.On("Submit", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := do(r, http.MethodPost, "/extractions", map[string]any{"document_url": "https://example.test/q.pdf"})

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestExtractionHandler_Create_RateLimitSetsRetryAfter(t *testing.T) {
	r, review, _ := newExtractionRouter()
	err := domain.NewTransportError("llm_text", "doc-1", provider.NewRateLimitError("llm_text", errors.New("429"), 30))
	review.On("Submit", mock.Anything, mock.Anything).Return(nil, err)

	w := do(r, http.MethodPost, "/extractions", map[string]any{"document_url": "https://example.test/q.pdf"})

	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}

func TestExtractionHandler_List(t *testing.T) {
	r, review, _ := newExtractionRouter()
	review.On("List", mock.Anything, domain.ExtractionStatusPendingReview, 0, 20).
		Return([]domain.ExtractionRecord{{ID: uuid.New()}}, 1, nil)

	w := do(r, http.MethodGet, "/extractions?status=pending_review", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Total)
}

func TestExtractionHandler_List_InvalidStatus(t *testing.T) {
	r, _, _ := newExtractionRouter()
	w := do(r, http.MethodGet, "/extractions?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractionHandler_GetByID_InvalidID(t *testing.T) {
	r, review, _ := newExtractionRouter()
	w := do(r, http.MethodGet, "/extractions/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	review.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestExtractionHandler_GetByID_NotFound(t *testing.T) {
	r, review, _ := newExtractionRouter()
	id := uuid.New()
	review.On("Get", mock.Anything, id).Return(nil, domain.ErrExtractionNotFound)

	w := do(r, http.MethodGet, "/extractions/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "EXTRACTION_NOT_FOUND", decode(t, w).Error.Code)
}

func TestExtractionHandler_Approve(t *testing.T) {
	r, review, _ := newExtractionRouter()
	id, supplierID := uuid.New(), uuid.New()
	result := &service.ReconcileResult{
		PartsCreated:  2,
		PricesCreated: 3,
		Errors:        []service.RowError{{Row: 2, Message: "part SKU-B: constraint"}},
	}
	review.On("Approve", mock.Anything, mock.MatchedBy(func(in *service.ApproveInput) bool {
		return in.ExtractionID == id && in.SupplierID == supplierID && in.HeaderOverrides.Currency == "CAD" && in.LineItems == nil
	})).Return(result, nil)

	w := do(r, http.MethodPost, "/extractions/"+id.String()+"/approve", map[string]any{
		"supplier_id":      supplierID,
		"header_overrides": map[string]string{"currency": "CAD"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"parts_created":2`)
	assert.Contains(t, w.Body.String(), `"row":2`)
}

func TestExtractionHandler_Approve_MissingSupplier(t *testing.T) {
	r, review, _ := newExtractionRouter()
	w := do(r, http.MethodPost, "/extractions/"+uuid.New().String()+"/approve", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	review.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything)
}

func TestExtractionHandler_Approve_NotPending(t *testing.T) {
	r, review, _ := newExtractionRouter()
	review.On("Approve", mock.Anything, mock.Anything).Return(nil, domain.ErrExtractionNotPending)

	w := do(r, http.MethodPost, "/extractions/"+uuid.New().String()+"/approve", map[string]any{"supplier_id": uuid.New()})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestExtractionHandler_Reject(t *testing.T) {
	r, review, _ := newExtractionRouter()
	id := uuid.New()
	review.On("Reject", mock.Anything, id, "duplicate quote").
		Return(&domain.ExtractionRecord{ID: id, Status: domain.ExtractionStatusRejected}, nil)

	w := do(r, http.MethodPost, "/extractions/"+id.String()+"/reject", map[string]string{"notes": "duplicate quote"})

	assert.Equal(t, http.StatusOK, w.Code)
	review.AssertExpectations(t)
}

func TestExtractionHandler_Reject_EmptyBody(t *testing.T) {
	r, review, _ := newExtractionRouter()
	id := uuid.New()
	review.On("Reject", mock.Anything, id, "").
		Return(&domain.ExtractionRecord{ID: id, Status: domain.ExtractionStatusRejected}, nil)

	w := do(r, http.MethodPost, "/extractions/"+id.String()+"/reject", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func storedRecord(t *testing.T) *domain.ExtractionRecord {
	t.Helper()
	data, err := json.Marshal(domain.CanonicalExtraction{
		SupplierName: "Acme",
		QuoteNumber:  "Q-7",
		LineItems: []domain.LineItem{{
			SupplierPartNumber: "HX-1",
			Description:        "Hex bolt",
			QtyBreaks:          []domain.QtyBreak{{MinQty: 1, UnitPrice: 0.5}},
		}},
	})
	require.NoError(t, err)
	return &domain.ExtractionRecord{ID: uuid.New(), NormalizedData: data}
}

func TestExtractionHandler_ExportCSV(t *testing.T) {
	r, review, _ := newExtractionRouter()
	rec := storedRecord(t)
	review.On("Get", mock.Anything, rec.ID).Return(rec, nil)

	w := do(r, http.MethodGet, "/extractions/"+rec.ID.String()+"/export", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="Acme_Q-7_`)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), export.BOM))
	assert.Contains(t, w.Body.String(), "HX-1")
}

func TestExtractionHandler_ExportXLSX(t *testing.T) {
	r, review, _ := newExtractionRouter()
	rec := storedRecord(t)
	review.On("Get", mock.Anything, rec.ID).Return(rec, nil)

	w := do(r, http.MethodGet, "/extractions/"+rec.ID.String()+"/export?format=xlsx", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasSuffix(w.Header().Get("Content-Disposition"), `.xlsx"`))
	// xlsx is a zip archive
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestExtractionHandler_Export_InvalidFormat(t *testing.T) {
	r, _, _ := newExtractionRouter()
	w := do(r, http.MethodGet, "/extractions/"+uuid.New().String()+"/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractionHandler_Compare(t *testing.T) {
	r, _, compare := newExtractionRouter()
	outcomes := []service.ProviderOutcome{
		{Provider: domain.ProviderMock, Result: &domain.ExtractionResult{Provider: domain.ProviderMock}},
		{Provider: domain.ProviderDocumentAI, ErrorKind: "suitability", Error: "no line items"},
	}
	compare.On("Compare", mock.Anything, port.ExtractInput{DocumentID: "doc-1", DocumentURL: "https://example.test/q.pdf"}, []string{"mock", "document_ai"}).
		Return(outcomes, nil)

	w := do(r, http.MethodPost, "/extractions/compare", map[string]any{
		"document_id":  "doc-1",
		"document_url": "https://example.test/q.pdf",
		"providers":    []string{"mock", "document_ai"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"error_kind":"suitability"`)
}

func TestExtractionHandler_Compare_RequiresURL(t *testing.T) {
	r, _, compare := newExtractionRouter()
	w := do(r, http.MethodPost, "/extractions/compare", map[string]any{"providers": []string{"mock"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	compare.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything)
}
