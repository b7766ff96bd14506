package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"quoteflow/internal/domain"
	"quoteflow/internal/export"
	"quoteflow/internal/port"
	"quoteflow/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExtractionHandler handles extraction review endpoints.
type ExtractionHandler struct {
	review  service.ReviewService
	compare service.ComparisonService
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(review service.ReviewService, compare service.ComparisonService) *ExtractionHandler {
	return &ExtractionHandler{review: review, compare: compare}
}

// CreateExtractionRequest is the body of POST /api/v1/extractions.
type CreateExtractionRequest struct {
	DocumentID  string     `json:"document_id"`
	DocumentURL string     `json:"document_url"`
	StorageKey  string     `json:"storage_key"`
	Provider    string     `json:"provider"`
	SupplierID  *uuid.UUID `json:"supplier_id"`
}

// ApproveExtractionRequest is the body of POST /api/v1/extractions/:id/approve.
type ApproveExtractionRequest struct {
	SupplierID      uuid.UUID               `json:"supplier_id" binding:"required"`
	LineItems       []domain.LineItem       `json:"line_items"`
	HeaderOverrides service.HeaderOverrides `json:"header_overrides"`
	Notes           string                  `json:"notes"`
}

// RejectExtractionRequest is the body of POST /api/v1/extractions/:id/reject.
type RejectExtractionRequest struct {
	Notes string `json:"notes"`
}

// CompareRequest is the body of POST /api/v1/extractions/compare.
type CompareRequest struct {
	DocumentID  string   `json:"document_id"`
	DocumentURL string   `json:"document_url" binding:"required"`
	Providers   []string `json:"providers"`
}

// Create handles POST /api/v1/extractions
func (h *ExtractionHandler) Create(c *gin.Context) {
	var req CreateExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	rec, err := h.review.Submit(c.Request.Context(), &service.SubmitInput{
		DocumentID:  req.DocumentID,
		DocumentURL: req.DocumentURL,
		StorageKey:  req.StorageKey,
		Provider:    req.Provider,
		SupplierID:  req.SupplierID,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, rec)
}

// List handles GET /api/v1/extractions
func (h *ExtractionHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	status := domain.ExtractionStatus(c.Query("status"))
	switch status {
	case "", domain.ExtractionStatusPendingReview, domain.ExtractionStatusApproved, domain.ExtractionStatusRejected:
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_STATUS", "status must be pending_review, approved, or rejected")
		return
	}

	recs, total, err := h.review.List(c.Request.Context(), status, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, recs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/extractions/:id
func (h *ExtractionHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, err := h.review.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Approve handles POST /api/v1/extractions/:id/approve
func (h *ExtractionHandler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ApproveExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "supplier_id is required")
		return
	}

	result, err := h.review.Approve(c.Request.Context(), &service.ApproveInput{
		ExtractionID:    id,
		SupplierID:      req.SupplierID,
		LineItems:       req.LineItems,
		HeaderOverrides: req.HeaderOverrides,
		Notes:           req.Notes,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}

// Reject handles POST /api/v1/extractions/:id/reject
func (h *ExtractionHandler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req RejectExtractionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
	}

	rec, err := h.review.Reject(c.Request.Context(), id, req.Notes)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Export handles GET /api/v1/extractions/:id/export?format=csv|xlsx
func (h *ExtractionHandler) Export(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	rec, err := h.review.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	var ext domain.CanonicalExtraction
	if err := json.Unmarshal(rec.NormalizedData, &ext); err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == "xlsx" {
		contentType = xlsxContentType
		err = export.WriteXLSX(&buf, &ext)
	} else {
		err = export.WriteCSV(&buf, &ext)
	}
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename(&ext, format, time.Now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Compare handles POST /api/v1/extractions/compare
func (h *ExtractionHandler) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "document_url is required")
		return
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.New().String()
	}

	outcomes, err := h.compare.Compare(c.Request.Context(), port.ExtractInput{
		DocumentID:  req.DocumentID,
		DocumentURL: req.DocumentURL,
	}, req.Providers)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, outcomes)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid extraction ID")
		return uuid.Nil, false
	}
	return id, true
}
