package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
)

type stubProvider struct{ name domain.ProviderName }

func (s stubProvider) Name() domain.ProviderName { return s.name }

func (s stubProvider) Extract(context.Context, port.ExtractInput) (*domain.ExtractionResult, error) {
	return &domain.ExtractionResult{Provider: s.name}, nil
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry(stubProvider{name: domain.ProviderMock})

	p, err := r.Lookup(domain.ProviderMock)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderMock, p.Name())

	_, err = r.Lookup("gpt-vision")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestBuildRegistry_FailedFactoryIsConfigError(t *testing.T) {
	cause := errors.New("document_ai.project_id is required")
	r := BuildRegistry(context.Background(), zap.NewNop(),
		Factory{Name: domain.ProviderMock, New: func(context.Context) (port.ExtractionProvider, error) {
			return stubProvider{name: domain.ProviderMock}, nil
		}},
		Factory{Name: domain.ProviderDocumentAI, New: func(context.Context) (port.ExtractionProvider, error) {
			return nil, cause
		}},
	)

	assert.Equal(t, []domain.ProviderName{domain.ProviderMock}, r.Names())
	assert.Contains(t, r.Unavailable(), domain.ProviderDocumentAI)

	_, err := r.Lookup(domain.ProviderDocumentAI)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.True(t, errors.Is(err, cause))
}

func TestBuildRetryPrompt_CarriesValidationError(t *testing.T) {
	p := BuildRetryPrompt("line_items: minimum 1 items required")
	assert.Contains(t, p, "line_items: minimum 1 items required")
	assert.Contains(t, p, "null")
	assert.Contains(t, p, `"supplier_name"`)
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 30, ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, ParseRetryAfterHeader(""))
	assert.Equal(t, 0, ParseRetryAfterHeader("soon"))
	assert.Equal(t, 60*time.Second, NewRateLimitError("llm_text", errors.New("x"), 0).RetryAfter)
}
