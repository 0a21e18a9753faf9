// Package llm provides the classification backends behind one request/response
// contract. Each backend takes system instructions plus a user payload and
// returns the raw reply text; interpreting that text is the caller's job.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider is the interface for one classification backend.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable backend name (e.g., "huggingface/Qwen/Qwen2.5-72B-Instruct").
	Name() string
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = provider default)
	Temperature float64 // 0.0-2.0 (0 = deterministic)
	System      string  // System instructions (optional)
}

// Config holds backend configuration.
type Config struct {
	Provider string `json:"provider"`           // "huggingface", "openrouter", "ollama"
	Model    string `json:"model"`              // e.g., "Qwen/Qwen2.5-72B-Instruct"
	APIKey   string `json:"api_key,omitempty"`  // empty = read from env
	BaseURL  string `json:"base_url,omitempty"` // optional URL override
}

// Default base URLs.
const (
	HuggingFaceBaseURL = "https://router.huggingface.co/v1"
	OpenRouterBaseURL  = "https://openrouter.ai/api/v1"
	OllamaBaseURL      = "http://localhost:11434"
)

// requestTimeout caps a single backend HTTP call.
const requestTimeout = 120 * time.Second

// NewProvider creates a backend from the given config.
func NewProvider(cfg Config) (Provider, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%s provider requires a model", cfg.Provider)
	}

	switch strings.ToLower(cfg.Provider) {
	case "huggingface", "hf":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("HF_TOKEN")
		}
		if key == "" {
			return nil, fmt.Errorf("huggingface provider requires HF_TOKEN env var")
		}
		return newChatProvider("huggingface", cfg.Model, key, orDefault(cfg.BaseURL, HuggingFaceBaseURL)), nil

	case "openrouter":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENROUTER_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openrouter provider requires OPENROUTER_API_KEY env var")
		}
		p := newChatProvider("openrouter", cfg.Model, key, orDefault(cfg.BaseURL, OpenRouterBaseURL))
		p.headers = map[string]string{
			"HTTP-Referer": "https://github.com/ygalaxyy/bookmarkbot",
			"X-Title":      "bookmarkbot",
		}
		return p, nil

	case "ollama":
		return newOllamaProvider(cfg.Model, orDefault(cfg.BaseURL, OllamaBaseURL)), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: huggingface, openrouter, ollama)", cfg.Provider)
	}
}

// NewProviders builds the cascade in the given order. Any invalid entry fails the whole list.
func NewProviders(cfgs []Config) ([]Provider, error) {
	providers := make([]Provider, 0, len(cfgs))
	for i, c := range cfgs {
		p, err := NewProvider(c)
		if err != nil {
			return nil, fmt.Errorf("backend %d: %w", i, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// ParseBackendFlag parses a "provider/model" flag value into a Config.
// Format: "huggingface/Qwen/Qwen2.5-72B-Instruct", "ollama/llama3.2"
func ParseBackendFlag(flag string) (Config, error) {
	parts := strings.SplitN(flag, "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return Config{}, fmt.Errorf("invalid backend %q: expected provider/model (e.g., ollama/llama3.2)", flag)
	}

	provider := strings.ToLower(parts[0])
	switch provider {
	case "huggingface", "hf", "openrouter", "ollama":
		return Config{Provider: provider, Model: parts[1]}, nil
	default:
		return Config{}, fmt.Errorf("unknown provider %q (supported: huggingface, openrouter, ollama)", provider)
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimRight(v, "/")
}
