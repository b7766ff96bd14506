package handler

import (
	"github.com/gin-gonic/gin"

	"quoteflow/internal/domain"
	"quoteflow/internal/service"
)

// ProviderHandler reports which extraction providers are usable.
type ProviderHandler struct {
	extractor   service.ExtractionService
	unavailable map[domain.ProviderName]error
}

// NewProviderHandler creates a new ProviderHandler. unavailable holds the
// construction error of every provider that failed to start.
func NewProviderHandler(extractor service.ExtractionService, unavailable map[domain.ProviderName]error) *ProviderHandler {
	return &ProviderHandler{extractor: extractor, unavailable: unavailable}
}

type providersResponse struct {
	Default     domain.ProviderName            `json:"default"`
	Providers   []domain.ProviderName          `json:"providers"`
	Unavailable map[domain.ProviderName]string `json:"unavailable,omitempty"`
}

// List handles GET /api/v1/providers
func (h *ProviderHandler) List(c *gin.Context) {
	resp := providersResponse{
		Default:   h.extractor.DefaultProvider(),
		Providers: h.extractor.Providers(),
	}
	if len(h.unavailable) > 0 {
		resp.Unavailable = make(map[domain.ProviderName]string, len(h.unavailable))
		for name, err := range h.unavailable {
			resp.Unavailable[name] = err.Error()
		}
	}
	RespondOK(c, resp)
}
