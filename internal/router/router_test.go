package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"quoteflow/internal/domain"
	"quoteflow/internal/handler"
	"quoteflow/internal/metrics"
	"quoteflow/internal/router"
	"quoteflow/mocks"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func newEngine() (*gin.Engine, *mocks.MockReviewService) {
	gin.SetMode(gin.TestMode)
	extractor := new(mocks.MockExtractionService)
	extractor.On("DefaultProvider").Return(domain.ProviderMock)
	extractor.On("Providers").Return([]domain.ProviderName{domain.ProviderMock})
	review := new(mocks.MockReviewService)

	r := router.Setup(zap.NewNop(), []string{"http://localhost:3000"}, router.Handlers{
		Health:     handler.NewHealthHandler(okPinger{}),
		Provider:   handler.NewProviderHandler(extractor, nil),
		Extraction: handler.NewExtractionHandler(review, new(mocks.MockComparisonService)),
		Metrics:    metrics.NewRecorder().Handler(),
	})
	return r, review
}

func TestSetup_Routes(t *testing.T) {
	r, review := newEngine()
	review.On("List", mock.Anything, domain.ExtractionStatus(""), 0, 20).Return([]domain.ExtractionRecord{}, 0, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/v1/providers", "/api/v1/extractions"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, path, http.NoBody)
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestSetup_UnknownRoute(t *testing.T) {
	r, _ := newEngine()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/documents", http.NoBody)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
