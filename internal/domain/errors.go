package domain

import (
	"errors"
	"fmt"
)

var (
	ErrExtractionNotFound   = errors.New("extraction not found")
	ErrExtractionNotPending = errors.New("extraction is not pending review")
	ErrPartNotFound         = errors.New("part not found")
	ErrDocumentTooLarge     = errors.New("document exceeds maximum allowed size")
	ErrDocumentTextTooLong  = errors.New("document text exceeds maximum allowed length")
	ErrInvalidLineItems     = errors.New("line items are invalid")
	ErrInvalidOverride      = errors.New("header override is not a valid date or currency")
	ErrMissingDocument      = errors.New("document_url or storage_key is required")
)

// ErrorKind classifies extraction failures for callers.
type ErrorKind string

const (
	KindConfiguration    ErrorKind = "configuration"
	KindTransport        ErrorKind = "transport"
	KindSchemaValidation ErrorKind = "schema_validation"
	KindSuitability      ErrorKind = "suitability"
)

// Kind sentinels; errors.Is(err, ErrSuitability) matches any ExtractionError of that kind.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrTransport        = errors.New("transport error")
	ErrSchemaValidation = errors.New("schema validation error")
	ErrSuitability      = errors.New("provider unsuitable for document")
)

// ExtractionError carries the context a caller needs to log and display an
// extraction failure.
type ExtractionError struct {
	Kind       ErrorKind
	Provider   string
	DocumentID string
	Attempt    int
	Message    string
	Err        error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("%s error", e.Kind)
	if e.Provider != "" {
		msg += " [provider=" + e.Provider + "]"
	}
	if e.DocumentID != "" {
		msg += " [document=" + e.DocumentID + "]"
	}
	if e.Attempt > 0 {
		msg += fmt.Sprintf(" [attempt=%d]", e.Attempt)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *ExtractionError) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrSchemaValidation:
		return e.Kind == KindSchemaValidation
	case ErrSuitability:
		return e.Kind == KindSuitability
	}
	return false
}

// NewConfigError builds a configuration-kind ExtractionError.
func NewConfigError(provider, msg string) *ExtractionError {
	return &ExtractionError{Kind: KindConfiguration, Provider: provider, Message: msg}
}

// NewTransportError wraps a network or download failure.
func NewTransportError(provider, documentID string, err error) *ExtractionError {
	return &ExtractionError{Kind: KindTransport, Provider: provider, DocumentID: documentID, Err: err}
}

// NewSchemaError reports output that failed canonical-schema validation.
func NewSchemaError(provider, documentID string, attempt int, err error) *ExtractionError {
	return &ExtractionError{Kind: KindSchemaValidation, Provider: provider, DocumentID: documentID, Attempt: attempt, Err: err}
}

// NewSuitabilityError reports a provider that structurally cannot handle the document.
func NewSuitabilityError(provider, documentID, msg string) *ExtractionError {
	return &ExtractionError{Kind: KindSuitability, Provider: provider, DocumentID: documentID, Message: msg}
}
