package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider abstracts a generation backend (OpenAI, Claude, Gemini, Ollama).
// Context parts are the retrieved passages backing the prompt; each provider
// folds them into its native message shape.
type Provider interface {
	Generate(ctx context.Context, prompt string, contextParts []string) (string, error)
	Name() string
}

const systemInstruction = "You are a helpful assistant. Use the following context to answer the user's question."

// NotConfiguredError reports a provider that cannot be used because its
// credentials are missing from settings.
type NotConfiguredError struct {
	Provider string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("%s API key not configured", e.Provider)
}

func IsNotConfigured(err error) bool {
	var nc *NotConfiguredError
	return errors.As(err, &nc)
}
