package llm

import (
	"context"
	"fmt"
	"time"
)

// SettingsReader supplies provider credentials and model names at request
// time, so settings changes take effect without a restart.
type SettingsReader interface {
	All(ctx context.Context) (map[string]string, error)
}

// Gateway resolves a Provider per request from stored settings and runs
// generation under a bounded timeout. Providers are interchangeable behind
// the Generate contract; the caller picks one by name.
type Gateway struct {
	settings SettingsReader
	timeout  time.Duration
}

func NewGateway(settings SettingsReader, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Gateway{settings: settings, timeout: timeout}
}

func (g *Gateway) Provider(ctx context.Context, name string) (Provider, error) {
	cfg, err := g.settings.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load LLM settings: %w", err)
	}

	switch name {
	case "openai":
		key := cfg["openai_api_key"]
		if key == "" {
			return nil, &NotConfiguredError{Provider: "OpenAI"}
		}
		return NewOpenAIProvider(key, valueOr(cfg, "openai_model", "gpt-3.5-turbo")), nil
	case "claude":
		key := cfg["claude_api_key"]
		if key == "" {
			return nil, &NotConfiguredError{Provider: "Claude"}
		}
		return NewClaudeProvider(key, valueOr(cfg, "claude_model", "claude-3-sonnet-20240229")), nil
	case "gemini":
		key := cfg["gemini_api_key"]
		if key == "" {
			return nil, &NotConfiguredError{Provider: "Gemini"}
		}
		return NewGeminiProvider(key, valueOr(cfg, "gemini_model", "gemini-pro")), nil
	case "ollama":
		return NewOllamaProvider(
			valueOr(cfg, "ollama_endpoint", "http://localhost:11434"),
			valueOr(cfg, "ollama_model", "llama2"),
		), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", name)
	}
}

// Generate resolves the named provider and runs one completion. The gateway
// timeout caps the call; the parent context still cancels early.
func (g *Gateway) Generate(ctx context.Context, providerName, prompt string, contextParts []string) (string, error) {
	p, err := g.Provider(ctx, providerName)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	return p.Generate(ctx, prompt, contextParts)
}

func valueOr(cfg map[string]string, key, fallback string) string {
	if v := cfg[key]; v != "" {
		return v
	}
	return fallback
}
