package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

func testEndpoint(baseURL string) Endpoint {
	return Endpoint{
		Backend: BackendCliProxy,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   "test-model",
		apiKey:  "cliproxy",
	}
}

func chatServerReturning(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestExtractSendsZeroTemperatureAndAuth(t *testing.T) {
	var got chatRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"vendor":null,"buyer":null,"invoice_no":null,"invoice_date":null,"currency":null,"total_amount":null,"total_pieces":null,"ship_from":null,"ship_to":null,"shipping_method":null,"line_items":[],"packing_items":[],"packing_totals":null}`}},
			},
		})
	}))
	defer server.Close()

	e := NewExtractor(testEndpoint(server.URL), DefaultOptions(), nil, nil)
	if _, err := e.Extract(context.Background(), "some invoice text"); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", got.Temperature)
	}
	if got.Model != "test-model" {
		t.Fatalf("model = %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if auth != "Bearer cliproxy" {
		t.Fatalf("authorization = %q", auth)
	}
}

func TestExtractTruncatesLongInput(t *testing.T) {
	var got chatRequest
	server := chatServerReturning(t, `{"line_items":[],"packing_items":[]}`, &got)
	defer server.Close()

	opts := DefaultOptions()
	opts.MaxInputChars = 50
	e := NewExtractor(testEndpoint(server.URL), opts, nil, nil)

	long := strings.Repeat("é", 400)
	if _, err := e.Extract(context.Background(), long); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	user := got.Messages[1].Content
	if !strings.HasPrefix(user, "Extract invoice data from the following PDF text:") {
		t.Fatalf("user prompt missing preamble: %q", user)
	}
	if n := strings.Count(user, "é"); n != 50 {
		t.Fatalf("truncated to %d runes, want 50", n)
	}
}

func TestExtractRepairsFencedResponse(t *testing.T) {
	content := "Let me think about this invoice.\n```json\n{\"invoice_no\": \"INV-1\", \"line_items\": [], \"packing_items\": []}\n```"
	server := chatServerReturning(t, content, nil)
	defer server.Close()

	e := NewExtractor(testEndpoint(server.URL), DefaultOptions(), nil, nil)
	record, err := e.Extract(context.Background(), "text")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if record.InvoiceNo == nil || *record.InvoiceNo != "INV-1" {
		t.Fatalf("InvoiceNo = %v", record.InvoiceNo)
	}
}

func TestExtractNoChoicesIsEmptyModelOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	e := NewExtractor(testEndpoint(server.URL), DefaultOptions(), nil, nil)
	_, err := e.Extract(context.Background(), "text")
	if !domain.IsKind(err, domain.ErrEmptyModelOutput) {
		t.Fatalf("expected ErrEmptyModelOutput, got %v", err)
	}
}

func TestExtractNoBracesIsSchemaViolation(t *testing.T) {
	server := chatServerReturning(t, "I cannot extract anything from this.", nil)
	defer server.Close()

	e := NewExtractor(testEndpoint(server.URL), DefaultOptions(), nil, nil)
	_, err := e.Extract(context.Background(), "text")
	if !domain.IsKind(err, domain.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestExtractUpstreamErrorKeepsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("model overloaded"))
	}))
	defer server.Close()

	e := NewExtractor(testEndpoint(server.URL), DefaultOptions(), nil, nil)
	_, err := e.Extract(context.Background(), "text")
	if !domain.IsKind(err, domain.ErrUpstreamStatus) {
		t.Fatalf("expected ErrUpstreamStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("error should carry the response body: %v", err)
	}
}

func TestExtractUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	e := NewExtractor(testEndpoint(server.URL), DefaultOptions(), nil, nil)
	_, err := e.Extract(context.Background(), "text")
	if !domain.IsKind(err, domain.ErrEndpointUnreachable) {
		t.Fatalf("expected ErrEndpointUnreachable, got %v", err)
	}
	if !domain.BatchFatal(err) {
		t.Fatalf("unreachable endpoint must be batch fatal")
	}
}

func TestPreflightStripsV1FromHealthURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("Ollama is running"))
	}))
	defer server.Close()

	endpoint := Endpoint{
		Backend: BackendOllama,
		BaseURL: server.URL + "/v1",
		Model:   "qwen3:8b",
		apiKey:  "ollama",
	}
	e := NewExtractor(endpoint, DefaultOptions(), nil, nil)
	if err := e.Preflight(context.Background()); err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
	if gotPath != "/" {
		t.Fatalf("health probe path = %q, want /", gotPath)
	}
}

func TestPreflightUnreachableOllamaIsBatchFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	endpoint := Endpoint{Backend: BackendOllama, BaseURL: server.URL + "/v1", Model: "m", apiKey: "ollama"}
	e := NewExtractor(endpoint, DefaultOptions(), nil, nil)
	err := e.Preflight(context.Background())
	if !domain.IsKind(err, domain.ErrEndpointUnreachable) {
		t.Fatalf("expected ErrEndpointUnreachable, got %v", err)
	}
}

func TestPreflightSkippedForNonOllamaBackends(t *testing.T) {
	e := NewExtractor(testEndpoint("http://127.0.0.1:1/v1"), DefaultOptions(), nil, nil)
	if err := e.Preflight(context.Background()); err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}
}
