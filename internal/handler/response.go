package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"quoteflow/internal/domain"
	"quoteflow/internal/provider"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
// Extraction errors keep their own message; it is the diagnostic a reviewer needs.
func MapDomainError(err error) (status int, code, msg string) {
	var rateErr *provider.RateLimitError

	switch {
	case errors.Is(err, domain.ErrExtractionNotFound):
		return http.StatusNotFound, "EXTRACTION_NOT_FOUND", "extraction not found"
	case errors.Is(err, domain.ErrPartNotFound):
		return http.StatusNotFound, "PART_NOT_FOUND", "part not found"
	case errors.Is(err, domain.ErrExtractionNotPending):
		return http.StatusConflict, "EXTRACTION_NOT_PENDING", "extraction has already been reviewed"
	case errors.Is(err, domain.ErrInvalidOverride):
		return http.StatusBadRequest, "INVALID_HEADER_OVERRIDE", err.Error()
	case errors.Is(err, domain.ErrInvalidLineItems):
		return http.StatusBadRequest, "INVALID_LINE_ITEMS", err.Error()
	case errors.Is(err, domain.ErrMissingDocument):
		return http.StatusBadRequest, "MISSING_DOCUMENT", "document_url or storage_key is required"
	case errors.Is(err, domain.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE", err.Error()
	case errors.Is(err, domain.ErrDocumentTextTooLong):
		return http.StatusRequestEntityTooLarge, "DOCUMENT_TEXT_TOO_LONG", err.Error()
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusBadRequest, "PROVIDER_CONFIGURATION", err.Error()
	case errors.Is(err, domain.ErrSuitability):
		return http.StatusUnprocessableEntity, "PROVIDER_UNSUITABLE", err.Error()
	case errors.Is(err, domain.ErrSchemaValidation):
		return http.StatusBadGateway, "EXTRACTION_INVALID", err.Error()
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, "PROVIDER_RATE_LIMITED", err.Error()
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway, "PROVIDER_UNREACHABLE", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
// The error is attached to the gin context so the request logger records it.
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code, msg := MapDomainError(err)
	var rateErr *provider.RateLimitError
	if errors.As(err, &rateErr) {
		c.Header("Retry-After", strconv.Itoa(int(rateErr.RetryAfter.Seconds())))
	}
	RespondError(c, status, code, msg)
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
