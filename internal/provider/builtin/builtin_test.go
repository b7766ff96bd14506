package builtin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quoteflow/internal/config"
	"quoteflow/internal/domain"
)

func TestRegistry_OnlyMockWithoutCredentials(t *testing.T) {
	cfg := &config.Config{}
	cfg.Extraction.MockDelay = 0
	cfg.Extraction.DocumentAI.Location = "us"

	reg := Registry(context.Background(), cfg, zap.NewNop())

	assert.Equal(t, []domain.ProviderName{domain.ProviderMock}, reg.Names())

	unavailable := reg.Unavailable()
	require.Len(t, unavailable, 2)
	assert.True(t, errors.Is(unavailable[domain.ProviderLLMText], domain.ErrConfiguration))
	assert.True(t, errors.Is(unavailable[domain.ProviderDocumentAI], domain.ErrConfiguration))
}

func TestRegistry_LLMTextWithAPIKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.Extraction.LLMText.APIKey = "sk-test"

	reg := Registry(context.Background(), cfg, zap.NewNop())

	p, err := reg.Lookup(domain.ProviderLLMText)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderLLMText, p.Name())
}
