package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OllamaBackend struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewOllamaBackend(endpoint, model string) *OllamaBackend {
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaBackend{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

func (b *OllamaBackend) Model() string { return b.model }

type ollamaEmbedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResp struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (b *OllamaBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, _ := json.Marshal(ollamaEmbedReq{Model: b.model, Input: texts})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed: unexpected status %d", resp.StatusCode)
	}

	var oResp ollamaEmbedResp
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}
	return oResp.Embeddings, nil
}
