package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/resilience"
)

// Options tunes the extractor's transport behavior.
type Options struct {
	// RequestTimeout bounds one chat-completions call end to end.
	RequestTimeout time.Duration
	// HealthTimeout bounds the Ollama reachability probe.
	HealthTimeout time.Duration
	// MaxInputChars caps how much document text goes into the prompt.
	MaxInputChars int
}

func DefaultOptions() Options {
	return Options{
		RequestTimeout: 60 * time.Second,
		HealthTimeout:  3 * time.Second,
		MaxInputChars:  12000,
	}
}

// Extractor produces invoice records via an OpenAI-compatible
// chat-completions endpoint. Construction requires a resolved Endpoint,
// so a heuristics-only configuration can never reach this code.
type Extractor struct {
	endpoint   Endpoint
	opts       Options
	httpClient *http.Client
	executor   *resilience.Executor
	logger     *slog.Logger
}

func NewExtractor(endpoint Endpoint, opts Options, executor *resilience.Executor, logger *slog.Logger) *Extractor {
	def := DefaultOptions()
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = def.HealthTimeout
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = def.MaxInputChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		endpoint:   endpoint,
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		executor:   executor,
		logger:     logger,
	}
}

// Preflight verifies the endpoint before any document is sent. Only the
// Ollama backend exposes a root health endpoint; the others are checked
// lazily by the first real call.
func (e *Extractor) Preflight(ctx context.Context) error {
	if e.endpoint.Backend != BackendOllama {
		return nil
	}

	// The health endpoint sits at the server root, not under /v1.
	healthURL := strings.TrimSuffix(strings.TrimSuffix(e.endpoint.BaseURL, "/"), "/v1")

	probeCtx, cancel := context.WithTimeout(ctx, e.opts.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, healthURL, nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrEndpointUnreachable, "ollama health",
			fmt.Errorf("ollama is not running at %s: %w", e.endpoint.BaseURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrEndpointUnreachable, "ollama health",
			fmt.Errorf("ollama at %s returned status %s", e.endpoint.BaseURL, resp.Status))
	}
	e.logger.Info("ollama server is reachable", "url", e.endpoint.BaseURL)
	return nil
}

// Extract sends one chat-completions request per document and parses the
// repaired JSON response. A document is attempted exactly once; failed
// model calls are not retried.
func (e *Extractor) Extract(ctx context.Context, text string) (*domain.InvoiceRecord, error) {
	request := chatRequest{
		Model: e.endpoint.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(truncateRunes(text, e.opts.MaxInputChars))},
		},
		Temperature: 0,
	}

	var response chatResponse
	call := func(ctx context.Context) error {
		return e.postJSON(ctx, e.endpoint.BaseURL+"/chat/completions", request, &response, "chat completion")
	}
	var err error
	if e.executor != nil {
		err = e.executor.Execute(ctx, "llm_extract", call, classifyModelError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, domain.WrapError(domain.ErrEmptyModelOutput, "chat completion",
			fmt.Errorf("response has no choices"))
	}
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return nil, domain.WrapError(domain.ErrEmptyModelOutput, "chat completion",
			fmt.Errorf("choice content is empty"))
	}

	repaired, err := RepairJSONObject(content)
	if err != nil {
		return nil, err
	}

	var record domain.InvoiceRecord
	if err := json.Unmarshal([]byte(repaired), &record); err != nil {
		return nil, domain.WrapError(domain.ErrSchemaViolation, "parse model output",
			fmt.Errorf("%w: raw: %s", err, snippet(repaired)))
	}
	return &record, nil
}

// truncateRunes cuts on rune boundaries so a multibyte character is
// never split mid-sequence.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
