package llm

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

// Backend selects which chat-completions endpoint extraction talks to.
type Backend string

const (
	BackendOllama   Backend = "ollama"
	BackendCliProxy Backend = "cliproxy"
	BackendRemote   Backend = "remote"
	// BackendHeuristics means no model at all. Resolve rejects it, so an
	// Endpoint for it can never exist.
	BackendHeuristics Backend = "heuristics"
)

func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case BackendOllama:
		return BackendOllama, nil
	case BackendCliProxy:
		return BackendCliProxy, nil
	case BackendRemote:
		return BackendRemote, nil
	case BackendHeuristics:
		return BackendHeuristics, nil
	}
	return "", fmt.Errorf("unknown llm backend %q", s)
}

// Section is one backend's connection settings.
type Section struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Config is the llm block of the config file.
type Config struct {
	Backend  Backend `yaml:"backend"`
	Ollama   Section `yaml:"ollama"`
	CliProxy Section `yaml:"cliproxy"`
	Remote   Section `yaml:"remote"`
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendOllama,
		Ollama: Section{
			BaseURL: "http://localhost:11434/v1",
			Model:   "qwen3:8b",
		},
		CliProxy: Section{
			BaseURL: "http://localhost:8317/v1",
			Model:   "gemini-2.5-flash",
		},
	}
}

// Endpoint is a resolved, ready-to-call model endpoint.
type Endpoint struct {
	Backend Backend
	BaseURL string
	Model   string
	apiKey  string
}

// Resolve turns the config section into a concrete endpoint. Local
// backends carry placeholder keys their servers ignore; the remote
// backend requires LLM_API_KEY in the environment at resolution time.
func Resolve(cfg Config, logger *slog.Logger) (Endpoint, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case BackendOllama:
		logger.Info("using ollama backend", "url", cfg.Ollama.BaseURL, "model", cfg.Ollama.Model)
		return Endpoint{
			Backend: BackendOllama,
			BaseURL: strings.TrimRight(cfg.Ollama.BaseURL, "/"),
			Model:   cfg.Ollama.Model,
			apiKey:  "ollama",
		}, nil
	case BackendCliProxy:
		logger.Info("using cliproxy backend", "url", cfg.CliProxy.BaseURL, "model", cfg.CliProxy.Model)
		return Endpoint{
			Backend: BackendCliProxy,
			BaseURL: strings.TrimRight(cfg.CliProxy.BaseURL, "/"),
			Model:   cfg.CliProxy.Model,
			apiKey:  "cliproxy",
		}, nil
	case BackendRemote:
		apiKey := os.Getenv("LLM_API_KEY")
		if apiKey == "" {
			return Endpoint{}, domain.WrapError(domain.ErrMissingCredential, "resolve llm endpoint",
				fmt.Errorf("LLM_API_KEY env var required for remote backend"))
		}
		logger.Info("using remote backend", "url", cfg.Remote.BaseURL, "model", cfg.Remote.Model)
		return Endpoint{
			Backend: BackendRemote,
			BaseURL: strings.TrimRight(cfg.Remote.BaseURL, "/"),
			Model:   cfg.Remote.Model,
			apiKey:  apiKey,
		}, nil
	case BackendHeuristics:
		return Endpoint{}, fmt.Errorf("heuristics backend selected, no llm endpoint to resolve")
	}
	return Endpoint{}, fmt.Errorf("unknown llm backend %q", cfg.Backend)
}
