package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	calls   [][]string
	vectors func(texts []string) [][]float32
	err     error
}

func (f *fakeBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors(texts), nil
}

func (f *fakeBackend) Model() string { return "fake-model" }

func oneVectorPerText(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out
}

func TestEmbedEmptyInput(t *testing.T) {
	s := NewService(&fakeBackend{vectors: oneVectorPerText}, nil, 0)

	vectors, err := s.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedPreservesOrder(t *testing.T) {
	backend := &fakeBackend{vectors: oneVectorPerText}
	s := NewService(backend, nil, 0)

	vectors, err := s.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1}, vectors[0])
	assert.Equal(t, []float32{2}, vectors[1])
	assert.Equal(t, []float32{3}, vectors[2])
}

func TestEmbedBatchesLargeInputs(t *testing.T) {
	backend := &fakeBackend{vectors: oneVectorPerText}
	s := NewService(backend, nil, 0)

	texts := make([]string, batchSize+7)
	for i := range texts {
		texts[i] = "chunk"
	}

	vectors, err := s.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, batchSize+7)

	require.Len(t, backend.calls, 2)
	assert.Len(t, backend.calls[0], batchSize)
	assert.Len(t, backend.calls[1], 7)
}

func TestEmbedVectorCountMismatch(t *testing.T) {
	backend := &fakeBackend{vectors: func(texts []string) [][]float32 {
		return [][]float32{{1}} // always one vector, regardless of input
	}}
	s := NewService(backend, nil, 0)

	_, err := s.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestEmbedRejectsWrongDimensions(t *testing.T) {
	backend := &fakeBackend{vectors: func(texts []string) [][]float32 {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 2, 3}
		}
		return out
	}}

	s := NewService(backend, nil, 3)
	_, err := s.Embed(context.Background(), []string{"ok"})
	require.NoError(t, err)

	s = NewService(backend, nil, 1536)
	_, err = s.Embed(context.Background(), []string{"bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestEmbedBackendError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("quota exceeded")}
	s := NewService(backend, nil, 0)

	_, err := s.Embed(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestEmbedSingle(t *testing.T) {
	s := NewService(&fakeBackend{vectors: oneVectorPerText}, nil, 0)

	vec, err := s.EmbedSingle(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, vec)
}

func TestCacheKeyIsModelScoped(t *testing.T) {
	s := NewService(&fakeBackend{vectors: oneVectorPerText}, nil, 0)

	k1 := s.cacheKey("hello")
	k2 := s.cacheKey("hello")
	k3 := s.cacheKey("world")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "emb:")
}
