// Package llm wraps the text-generation providers behind a single Client.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/giygas/rxscan-api/config"
)

// Client generates text from a prompt
type Client interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Config selects and configures a provider
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// ConfigFrom picks the provider settings out of the service configuration
func ConfigFrom(cfg *config.Config) Config {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return Config{Provider: cfg.LLMProvider, APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL}
	case config.ProviderClaude:
		return Config{Provider: cfg.LLMProvider, APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel}
	case config.ProviderOllama:
		return Config{Provider: cfg.LLMProvider, Model: cfg.OllamaModel, BaseURL: cfg.OllamaBaseURL}
	default:
		return Config{Provider: config.ProviderGemini, APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}
	}
}

// NewClient builds the client for cfg.Provider
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return client, nil

	case config.ProviderClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic api key is required")
		}
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case config.ProviderOllama:
		// Ollama speaks the OpenAI-compatible API under /v1 and ignores the key
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		return NewOpenAIClient("ollama", cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
