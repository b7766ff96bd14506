package llmtext

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"quoteflow/internal/config"
	"quoteflow/internal/domain"
	"quoteflow/internal/fetch"
	"quoteflow/internal/port"
	"quoteflow/internal/provider"
	"quoteflow/internal/schema"
	"quoteflow/internal/scoring"
)

const (
	maxAttempts         = 2
	defaultModel        = "gpt-4o-mini"
	defaultMaxTextChars = 100000
	defaultMaxRawChars  = 20000
)

var name = string(domain.ProviderLLMText)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type documentSource interface {
	FetchToTemp(ctx context.Context, url, pattern string) (string, func(), error)
}

// Options tunes a Provider.
type Options struct {
	Model             string
	Temperature       float32
	MaxTextChars      int
	MaxRawChars       int
	RequestsPerSecond float64
}

// Provider extracts a quote by pulling the PDF text layer and asking a chat
// model for canonical JSON. Output that fails schema validation is retried
// once with the validation error fed back to the model.
type Provider struct {
	client  chatCompleter
	docs    documentSource
	text    fetch.TextExtractor
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New builds a Provider backed by an OpenAI-compatible chat completions API.
func New(cfg config.LLMTextConfig, docs *fetch.Downloader, logger *zap.Logger) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, domain.NewConfigError(name, "llm_text api key is not set")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	clientCfg.HTTPClient = newHTTPClient(timeout)

	opts := Options{
		Model:             cfg.Model,
		Temperature:       cfg.Temperature,
		MaxTextChars:      cfg.MaxTextChars,
		MaxRawChars:       cfg.MaxRawChars,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}
	return newProvider(openai.NewClientWithConfig(clientCfg), docs, fetch.NewPDFText(), opts, logger), nil
}

func newProvider(client chatCompleter, docs documentSource, text fetch.TextExtractor, opts Options, logger *zap.Logger) *Provider {
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTextChars <= 0 {
		opts.MaxTextChars = defaultMaxTextChars
	}
	if opts.MaxRawChars <= 0 {
		opts.MaxRawChars = defaultMaxRawChars
	}
	p := &Provider{
		client: client,
		docs:   docs,
		text:   text,
		opts:   opts,
		logger: logger.With(zap.String("provider", name)),
	}
	if opts.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return p
}

func (p *Provider) Name() domain.ProviderName {
	return domain.ProviderLLMText
}

func (p *Provider) Extract(ctx context.Context, input port.ExtractInput) (*domain.ExtractionResult, error) {
	start := time.Now()
	log := p.logger.With(zap.String("document_id", input.DocumentID))
	log.Info("llmtext.extract.start", zap.String("model", p.opts.Model))

	text, err := p.readDocument(ctx, input)
	if err != nil {
		return nil, err
	}

	usage := &domain.TokenUsage{}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt := provider.BuildQuotePrompt()
		if lastErr != nil {
			prompt = provider.BuildRetryPrompt(lastErr.Error())
		}

		content, err := p.complete(ctx, prompt, text, usage)
		if err != nil {
			log.Warn("llmtext.extract.transport_error", zap.Int("attempt", attempt), zap.Error(err))
			return nil, &domain.ExtractionError{
				Kind:       domain.KindTransport,
				Provider:   name,
				DocumentID: input.DocumentID,
				Attempt:    attempt,
				Err:        err,
			}
		}

		ext, err := decodeQuote(content)
		if err == nil {
			err = schema.Validate(ext)
		}
		if err != nil {
			lastErr = err
			log.Warn("llmtext.extract.schema_retry", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		elapsed := time.Since(start).Milliseconds()
		log.Info("llmtext.extract.done",
			zap.Int("attempt", attempt),
			zap.Int64("elapsed_ms", elapsed),
			zap.Int("total_tokens", usage.TotalTokens),
			zap.Int("line_items", len(ext.LineItems)),
		)
		return &domain.ExtractionResult{
			Provider:   domain.ProviderLLMText,
			Raw:        truncateRaw(content, p.opts.MaxRawChars),
			Normalized: *ext,
			Metrics:    scoring.CalculateAccuracyMetrics(ext, elapsed, usage),
		}, nil
	}

	return nil, domain.NewSchemaError(name, input.DocumentID, maxAttempts, lastErr)
}

// readDocument downloads the PDF to a temp file and returns its text layer.
// The temp file never outlives this call.
func (p *Provider) readDocument(ctx context.Context, input port.ExtractInput) (string, error) {
	path, cleanup, err := p.docs.FetchToTemp(ctx, input.DocumentURL, "quote-*.pdf")
	if err != nil {
		if errors.Is(err, domain.ErrDocumentTooLarge) {
			return "", &domain.ExtractionError{Kind: domain.KindSuitability, Provider: name, DocumentID: input.DocumentID, Err: err}
		}
		return "", domain.NewTransportError(name, input.DocumentID, err)
	}
	defer cleanup()

	text, err := p.text.ExtractText(ctx, path)
	if err != nil {
		return "", &domain.ExtractionError{
			Kind:       domain.KindSuitability,
			Provider:   name,
			DocumentID: input.DocumentID,
			Message:    "could not read PDF text",
			Err:        err,
		}
	}
	if text == "" {
		return "", domain.NewSuitabilityError(name, input.DocumentID,
			"document has no text layer; scanned quotes need the document_ai provider")
	}
	if len(text) > p.opts.MaxTextChars {
		return "", &domain.ExtractionError{
			Kind:       domain.KindSuitability,
			Provider:   name,
			DocumentID: input.DocumentID,
			Message:    "document text is longer than the configured limit",
			Err:        domain.ErrDocumentTextTooLong,
		}
	}
	return text, nil
}

func (p *Provider) complete(ctx context.Context, systemPrompt, text string, usage *domain.TokenUsage) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	retryAfter := 0
	resp, err := p.client.CreateChatCompletion(context.WithValue(ctx, retryAfterKey{}, &retryAfter), openai.ChatCompletionRequest{
		Model:       p.opts.Model,
		Temperature: p.opts.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		if isRateLimited(err) {
			return "", provider.NewRateLimitError(name, err, retryAfter)
		}
		return "", err
	}

	usage.PromptTokens += resp.Usage.PromptTokens
	usage.CompletionTokens += resp.Usage.CompletionTokens
	usage.TotalTokens += resp.Usage.TotalTokens

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

type retryAfterKey struct{}

// retryAfterTransport copies the Retry-After seconds of a 429 response into
// the *int stored under retryAfterKey in the request context. The client
// library's error types do not carry response headers.
type retryAfterTransport struct {
	base http.RoundTripper
}

func (t retryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusTooManyRequests {
		return resp, err
	}
	if dst, ok := req.Context().Value(retryAfterKey{}).(*int); ok {
		*dst = provider.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
	}
	return resp, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: retryAfterTransport{base: http.DefaultTransport},
	}
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// truncateRaw keeps the audit copy of the model output bounded. Oversized
// output is stored as a JSON object holding the leading part of the text.
func truncateRaw(content string, maxChars int) json.RawMessage {
	if len(content) <= maxChars && json.Valid([]byte(content)) {
		return json.RawMessage(content)
	}
	cut := []rune(content)
	truncated := len(cut) > maxChars
	if truncated {
		cut = cut[:maxChars]
	}
	b, _ := json.Marshal(struct {
		Truncated bool   `json:"truncated"`
		Text      string `json:"text"`
	}{Truncated: truncated, Text: string(cut)})
	return b
}
