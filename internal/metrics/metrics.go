package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quoteflow/internal/domain"
)

// Recorder publishes pipeline metrics. A nil *Recorder is a valid no-op.
type Recorder struct {
	gatherer prometheus.Gatherer

	extractionTotal    *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	completeness       *prometheus.HistogramVec
	tokensUsed         *prometheus.CounterVec
	reconcileRows      *prometheus.CounterVec
}

// NewRecorder registers the pipeline collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		gatherer: reg,
		extractionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quoteflow_extractions_total",
				Help: "Extractions by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		extractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quoteflow_extraction_duration_seconds",
				Help:    "Wall-clock extraction latency",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"provider"},
		),
		completeness: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quoteflow_extraction_completeness",
				Help:    "Completeness score of successful extractions",
				Buckets: []float64{0.25, 0.38, 0.5, 0.63, 0.75, 0.88, 1.0},
			},
			[]string{"provider"},
		),
		tokensUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quoteflow_llm_tokens_used_total",
				Help: "LLM tokens consumed by extractions",
			},
			[]string{"provider", "type"},
		),
		reconcileRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quoteflow_reconcile_rows_total",
				Help: "Catalog rows written or rejected during reconciliation",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(r.extractionTotal, r.extractionDuration, r.completeness, r.tokensUsed, r.reconcileRows)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// ObserveExtraction records one provider call.
func (r *Recorder) ObserveExtraction(provider domain.ProviderName, elapsed time.Duration, res *domain.ExtractionResult, err error) {
	if r == nil {
		return
	}
	p := string(provider)
	r.extractionTotal.WithLabelValues(p, Outcome(err)).Inc()
	r.extractionDuration.WithLabelValues(p).Observe(elapsed.Seconds())
	if err != nil || res == nil {
		return
	}
	r.completeness.WithLabelValues(p).Observe(res.Metrics.CompletenessScore)
	if u := res.Metrics.TokenUsage; u != nil {
		r.tokensUsed.WithLabelValues(p, "prompt").Add(float64(u.PromptTokens))
		r.tokensUsed.WithLabelValues(p, "completion").Add(float64(u.CompletionTokens))
	}
}

// ObserveReconcile records the row counts of one reconciliation.
func (r *Recorder) ObserveReconcile(parts, prices, failures int) {
	if r == nil {
		return
	}
	r.reconcileRows.WithLabelValues("part").Add(float64(parts))
	r.reconcileRows.WithLabelValues("price").Add(float64(prices))
	r.reconcileRows.WithLabelValues("error").Add(float64(failures))
}

// Outcome maps an extraction error to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var extErr *domain.ExtractionError
	if errors.As(err, &extErr) {
		return string(extErr.Kind)
	}
	return "error"
}
