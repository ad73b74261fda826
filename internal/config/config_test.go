package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mmsoft/invoiceflow/internal/infrastructure/extractor/llm"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("SCANNED_PAGE_RATIO", "")
	t.Setenv("MIN_TEXT_CHARS", "")

	cfg := Load()
	if cfg.NATSSubject != "attachments.stored" {
		t.Fatalf("expected default nats subject, got %q", cfg.NATSSubject)
	}
	if cfg.ScannedPageRatio != 0.80 {
		t.Fatalf("expected default scanned page ratio 0.80, got %v", cfg.ScannedPageRatio)
	}
	if cfg.MinTextChars != 30 {
		t.Fatalf("expected default min text chars 30, got %d", cfg.MinTextChars)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SCANNED_PAGE_RATIO", "0.9")
	t.Setenv("MIN_TEXT_CHARS", "50")
	t.Setenv("GMAIL_QUERY", "filename:pdf")

	cfg := Load()
	if cfg.ScannedPageRatio != 0.9 {
		t.Fatalf("expected scanned page ratio 0.9, got %v", cfg.ScannedPageRatio)
	}
	if cfg.MinTextChars != 50 {
		t.Fatalf("expected min text chars 50, got %d", cfg.MinTextChars)
	}
	if cfg.GmailQuery != "filename:pdf" {
		t.Fatalf("expected gmail query override, got %q", cfg.GmailQuery)
	}
}

func TestLoadFileParsesBackendSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  backend: cliproxy
  cliproxy:
    base_url: http://localhost:8317/v1
    model: gemini-2.5-flash
gmail:
  user: mmsoft.mudit@gmail.com
  client_id: cid
  client_secret: cs
  refresh_token: rt
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if fc.LLM.Backend != llm.BackendCliProxy {
		t.Fatalf("Backend = %q", fc.LLM.Backend)
	}
	if fc.LLM.CliProxy.Model != "gemini-2.5-flash" {
		t.Fatalf("CliProxy.Model = %q", fc.LLM.CliProxy.Model)
	}
	// Unset sections keep their defaults.
	if fc.LLM.Ollama.BaseURL != "http://localhost:11434/v1" {
		t.Fatalf("Ollama.BaseURL = %q", fc.LLM.Ollama.BaseURL)
	}
	if fc.Gmail.User != "mmsoft.mudit@gmail.com" {
		t.Fatalf("Gmail.User = %q", fc.Gmail.User)
	}
}

func TestLoadFileRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  backend: watson\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
