package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (b *OpenAIBackend) Model() string { return b.model }

func (b *OpenAIBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := b.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(b.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
