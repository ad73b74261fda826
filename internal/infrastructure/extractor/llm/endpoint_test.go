package llm

import (
	"testing"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

func TestResolveOllamaUsesPlaceholderKey(t *testing.T) {
	endpoint, err := Resolve(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if endpoint.Backend != BackendOllama {
		t.Fatalf("Backend = %q", endpoint.Backend)
	}
	if endpoint.BaseURL != "http://localhost:11434/v1" {
		t.Fatalf("BaseURL = %q", endpoint.BaseURL)
	}
	if endpoint.apiKey != "ollama" {
		t.Fatalf("apiKey = %q", endpoint.apiKey)
	}
}

func TestResolveRemoteRequiresAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendRemote
	cfg.Remote = Section{BaseURL: "https://api.example.com/v1", Model: "gpt-4o-mini"}

	t.Setenv("LLM_API_KEY", "")
	_, err := Resolve(cfg, nil)
	if !domain.IsKind(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if !domain.BatchFatal(err) {
		t.Fatalf("missing credential must be batch fatal")
	}

	t.Setenv("LLM_API_KEY", "sk-test")
	endpoint, err := Resolve(cfg, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if endpoint.apiKey != "sk-test" {
		t.Fatalf("apiKey = %q", endpoint.apiKey)
	}
}

func TestResolveHeuristicsHasNoEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendHeuristics
	if _, err := Resolve(cfg, nil); err == nil {
		t.Fatalf("expected error for heuristics backend")
	}
}

func TestParseBackend(t *testing.T) {
	for input, want := range map[string]Backend{
		"ollama":     BackendOllama,
		"CliProxy":   BackendCliProxy,
		" remote ":   BackendRemote,
		"heuristics": BackendHeuristics,
	} {
		got, err := ParseBackend(input)
		if err != nil || got != want {
			t.Fatalf("ParseBackend(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseBackend("gemini"); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
