package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragfuse/ragfuse/internal/embedding"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
)

type stubBackend struct{}

func (stubBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (stubBackend) Model() string { return "stub" }

func TestScopeFilterPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  vectorstore.Filter
	}{
		{
			"document set wins over folder",
			Scope{SelectedDocuments: []string{"d1", "d2"}, FolderID: "f1"},
			vectorstore.Filter{FileIDs: []string{"d1", "d2"}},
		},
		{
			"folder scope alone",
			Scope{FolderID: "f1"},
			vectorstore.Filter{FolderID: "f1"},
		},
		{
			"root folder means unscoped",
			Scope{FolderID: "root"},
			vectorstore.Filter{},
		},
		{
			"empty scope means unscoped",
			Scope{},
			vectorstore.Filter{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.filter())
		})
	}
}

func TestAssembleChatPropagatesUnavailableIndex(t *testing.T) {
	embedder := embedding.NewService(stubBackend{}, nil, 0)
	a := NewAssembler(vectorstore.NewUnavailable(), embedder, nil, nil, Options{})

	_, err := a.AssembleChat(context.Background(), "what is x?", Scope{}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, vectorstore.ErrUnavailable)
}

func TestSearchPropagatesUnavailableIndex(t *testing.T) {
	embedder := embedding.NewService(stubBackend{}, nil, 0)
	a := NewAssembler(vectorstore.NewUnavailable(), embedder, nil, nil, Options{})

	_, err := a.Search(context.Background(), "q", 3, Scope{})
	assert.ErrorIs(t, err, vectorstore.ErrUnavailable)
}

func TestBuildPromptDefaultTemplate(t *testing.T) {
	prompt := BuildPrompt("", "What is X?", []string{"ctx one", "ctx two"})

	assert.Equal(t,
		"Given the following context:\n\nctx one\n\nctx two\n\nAnswer the question: What is X?",
		prompt)
}

func TestBuildPromptCustomTemplate(t *testing.T) {
	prompt := BuildPrompt("CTX={{context}} Q={{query}}", "why", []string{"a", "b"})

	assert.Equal(t, "CTX=a\n\nb Q=why", prompt)
}

func TestBuildPromptEmptyContextDegradesToQuery(t *testing.T) {
	assert.Equal(t, "bare question", BuildPrompt("", "bare question", nil))
}

func TestBuildPromptCustomTemplateWithEmptyContext(t *testing.T) {
	assert.Equal(t, " | q", BuildPrompt("{{context}} | {{query}}", "q", nil))
}
