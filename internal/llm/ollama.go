package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaProvider talks to a local Ollama server. Unlike the hosted
// providers it needs no API key.
type OllamaProvider struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewOllamaProvider(endpoint, model string) *OllamaProvider {
	return &OllamaProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaGenerateReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResp struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt string, contextParts []string) (string, error) {
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

	body, _ := json.Marshal(ollamaGenerateReq{
		Model:  p.model,
		Prompt: full.String(),
		Stream: false,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama generate: unexpected status %d", resp.StatusCode)
	}

	var oResp ollamaGenerateResp
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("ollama decode: %w", err)
	}
	return oResp.Response, nil
}
