package llmtext

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
	"quoteflow/internal/provider"
)

const validQuote = `{
  "supplier_name": "Acme Supply",
  "quote_number": "Q-77",
  "quote_date": "January 15, 2024",
  "currency": "Canadian dollar",
  "valid_until": "30 days",
  "payment_terms": null,
  "notes": null,
  "line_items": [
    {
      "supplier_part_number": "BRK-100",
      "description": "Bracket, steel",
      "uom": "EA",
      "qty_breaks": [
        {"min_qty": null, "unit_price": 4.25},
        {"min_qty": 100, "unit_price": "$3.90"},
        {"min_qty": 500, "unit_price": null}
      ],
      "lead_time_days": 14,
      "moq": null
    }
  ]
}`

const noItemsQuote = `{"supplier_name": "Acme Supply", "line_items": []}`

type fakeCompleter struct {
	replies []fakeReply
	reqs    []openai.ChatCompletionRequest
}

type fakeReply struct {
	content string
	err     error
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	r := f.replies[len(f.reqs)-1]
	if r.err != nil {
		return openai.ChatCompletionResponse{}, r.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: r.content}}},
		Usage:   openai.Usage{PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140},
	}, nil
}

// tempDocs writes a real temp file so tests can assert it is removed.
type tempDocs struct {
	t     *testing.T
	path  string
	err   error
	clean int
}

func (d *tempDocs) FetchToTemp(_ context.Context, _, pattern string) (string, func(), error) {
	if d.err != nil {
		return "", nil, d.err
	}
	f, err := os.CreateTemp(d.t.TempDir(), pattern)
	require.NoError(d.t, err)
	require.NoError(d.t, f.Close())
	d.path = f.Name()
	return d.path, func() {
		d.clean++
		_ = os.Remove(d.path)
	}, nil
}

func (d *tempDocs) removed() bool {
	_, err := os.Stat(d.path)
	return d.clean == 1 && os.IsNotExist(err)
}

type fakeText struct {
	text string
	err  error
}

func (f fakeText) ExtractText(context.Context, string) (string, error) {
	return f.text, f.err
}

func newTestProvider(t *testing.T, c chatCompleter, text string, opts Options) (*Provider, *tempDocs) {
	docs := &tempDocs{t: t}
	return newProvider(c, docs, fakeText{text: text}, opts, zap.NewNop()), docs
}

var input = port.ExtractInput{DocumentID: "doc-42", DocumentURL: "https://files.example.com/q.pdf"}

func TestExtract_SuccessNormalizes(t *testing.T) {
	c := &fakeCompleter{replies: []fakeReply{{content: validQuote}}}
	p, docs := newTestProvider(t, c, "QUOTE Acme Supply ...", Options{})

	res, err := p.Extract(context.Background(), input)
	require.NoError(t, err)

	n := res.Normalized
	assert.Equal(t, "Acme Supply", n.SupplierName)
	assert.Equal(t, "2024-01-15", n.QuoteDate)
	assert.Equal(t, "CAD", n.Currency)
	assert.Equal(t, "2024-02-14", n.ValidUntil)
	assert.Empty(t, n.PaymentTerms)
	require.Len(t, n.LineItems, 1)
	assert.Equal(t, []domain.QtyBreak{{MinQty: 1, UnitPrice: 4.25}, {MinQty: 100, UnitPrice: 3.90}}, n.LineItems[0].QtyBreaks)
	require.NotNil(t, n.LineItems[0].LeadTimeDays)
	assert.Equal(t, 14, *n.LineItems[0].LeadTimeDays)
	assert.Nil(t, n.LineItems[0].MOQ)

	assert.Equal(t, domain.ProviderLLMText, res.Provider)
	require.NotNil(t, res.Metrics.TokenUsage)
	assert.Equal(t, 140, res.Metrics.TokenUsage.TotalTokens)
	assert.JSONEq(t, validQuote, string(res.Raw))

	require.Len(t, c.reqs, 1)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, c.reqs[0].ResponseFormat.Type)
	assert.Equal(t, "QUOTE Acme Supply ...", c.reqs[0].Messages[1].Content)
	assert.True(t, docs.removed())
}

func TestExtract_RetriesOnceAfterSchemaFailure(t *testing.T) {
	c := &fakeCompleter{replies: []fakeReply{{content: noItemsQuote}, {content: validQuote}}}
	p, docs := newTestProvider(t, c, "text", Options{})

	res, err := p.Extract(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, c.reqs, 2)
	assert.NotContains(t, c.reqs[0].Messages[0].Content, "previous response was rejected")
	assert.Contains(t, c.reqs[1].Messages[0].Content, "previous response was rejected")
	assert.Contains(t, c.reqs[1].Messages[0].Content, "line_items")

	assert.Equal(t, 280, res.Metrics.TokenUsage.TotalTokens)
	assert.Equal(t, 200, res.Metrics.TokenUsage.PromptTokens)
	assert.Len(t, res.Normalized.LineItems, 1)
	assert.NotContains(t, string(res.Raw), "attempt")
	assert.True(t, docs.removed())
}

func TestExtract_FailsAfterSecondSchemaFailure(t *testing.T) {
	c := &fakeCompleter{replies: []fakeReply{{content: noItemsQuote}, {content: "not json at all"}}}
	p, docs := newTestProvider(t, c, "text", Options{})

	_, err := p.Extract(context.Background(), input)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaValidation))
	var extErr *domain.ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, 2, extErr.Attempt)
	assert.Equal(t, "doc-42", extErr.DocumentID)
	assert.Equal(t, "llm_text", extErr.Provider)
	assert.Len(t, c.reqs, 2)
	assert.True(t, docs.removed())
}

func TestExtract_TransportErrorNotRetried(t *testing.T) {
	c := &fakeCompleter{replies: []fakeReply{{err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}}}}
	p, docs := newTestProvider(t, c, "text", Options{})

	_, err := p.Extract(context.Background(), input)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransport))
	var rl *provider.RateLimitError
	assert.ErrorAs(t, err, &rl)
	assert.Len(t, c.reqs, 1)
	assert.True(t, docs.removed())
}

func TestExtract_TextTooLongSkipsModel(t *testing.T) {
	c := &fakeCompleter{}
	p, docs := newTestProvider(t, c, strings.Repeat("a", 101), Options{MaxTextChars: 100})

	_, err := p.Extract(context.Background(), input)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSuitability))
	assert.True(t, errors.Is(err, domain.ErrDocumentTextTooLong))
	assert.Empty(t, c.reqs)
	assert.True(t, docs.removed())
}

func TestExtract_EmptyTextIsUnsuitable(t *testing.T) {
	c := &fakeCompleter{}
	p, docs := newTestProvider(t, c, "", Options{})

	_, err := p.Extract(context.Background(), input)

	assert.True(t, errors.Is(err, domain.ErrSuitability))
	assert.Empty(t, c.reqs)
	assert.True(t, docs.removed())
}

func TestExtract_DownloadFailureIsTransport(t *testing.T) {
	docs := &tempDocs{t: t, err: errors.New("connection reset")}
	p := newProvider(&fakeCompleter{}, docs, fakeText{}, Options{}, zap.NewNop())

	_, err := p.Extract(context.Background(), input)

	assert.True(t, errors.Is(err, domain.ErrTransport))
}

func TestExtract_RawTruncated(t *testing.T) {
	c := &fakeCompleter{replies: []fakeReply{{content: validQuote}}}
	p, _ := newTestProvider(t, c, "text", Options{MaxRawChars: 50})

	res, err := p.Extract(context.Background(), input)
	require.NoError(t, err)

	var raw struct {
		Truncated bool   `json:"truncated"`
		Text      string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(res.Raw, &raw))
	assert.True(t, raw.Truncated)
	assert.Len(t, []rune(raw.Text), 50)
}

func TestExtract_OpenAIClientOverHTTP(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": validQuote}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 11, "completion_tokens": 7, "total_tokens": 18},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	p, _ := newTestProvider(t, openai.NewClientWithConfig(cfg), "text", Options{})

	res, err := p.Extract(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 18, res.Metrics.TokenUsage.TotalTokens)
	assert.Equal(t, "Acme Supply", res.Normalized.SupplierName)
}

func TestExtract_HTTP429MapsToRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	p, _ := newTestProvider(t, openai.NewClientWithConfig(cfg), "text", Options{})

	_, err := p.Extract(context.Background(), input)

	var rl *provider.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.True(t, errors.Is(err, domain.ErrTransport))
	assert.Equal(t, 60*time.Second, rl.RetryAfter)
}

func TestExtract_HTTP429HonorsRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	cfg.HTTPClient = newHTTPClient(5 * time.Second)
	p, _ := newTestProvider(t, openai.NewClientWithConfig(cfg), "text", Options{})

	_, err := p.Extract(context.Background(), input)

	var rl *provider.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(configWithKey(""), nil, zap.NewNop())
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
