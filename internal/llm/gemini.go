package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	apiKey string
	model  string
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey, model: model}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, contextParts []string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	var full strings.Builder
	full.WriteString(systemInstruction)
	full.WriteString("\n\n")
	if len(contextParts) > 0 {
		full.WriteString("Context:\n")
		full.WriteString(strings.Join(contextParts, "\n"))
		full.WriteString("\n\n")
	}
	full.WriteString("Question: ")
	full.WriteString(prompt)

	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(full.String()), nil)
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}
	return resp.Text(), nil
}
