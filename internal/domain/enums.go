package domain

import "fmt"

// ProviderName identifies an extraction backend. The set is closed.
type ProviderName string

const (
	ProviderMock       ProviderName = "mock"
	ProviderLLMText    ProviderName = "llm_text"
	ProviderDocumentAI ProviderName = "document_ai"
)

// KnownProviders lists every provider identifier the system understands.
var KnownProviders = []ProviderName{ProviderMock, ProviderLLMText, ProviderDocumentAI}

// ParseProviderName validates s against the known provider identifiers.
func ParseProviderName(s string) (ProviderName, error) {
	for _, p := range KnownProviders {
		if string(p) == s {
			return p, nil
		}
	}
	return "", &ExtractionError{
		Kind:     KindConfiguration,
		Provider: s,
		Message:  fmt.Sprintf("unknown extraction provider %q", s),
	}
}

// ExtractionStatus is the review lifecycle of a persisted extraction.
type ExtractionStatus string

const (
	ExtractionStatusPendingReview ExtractionStatus = "pending_review"
	ExtractionStatusApproved      ExtractionStatus = "approved"
	ExtractionStatusRejected      ExtractionStatus = "rejected"
)

// UnknownSupplier is used when a provider cannot resolve the supplier name.
const UnknownSupplier = "Unknown Supplier"
