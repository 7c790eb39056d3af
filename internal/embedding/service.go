package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/ragfuse/ragfuse/internal/cache"
)

// Backend computes embedding vectors for a batch of texts.
type Backend interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Service wraps a Backend with batching and an optional embedding cache.
// Chunk embeddings are computed once at ingestion and are immutable, so a
// content-addressed cache is always safe to reuse.
type Service struct {
	backend Backend
	cache   *cache.Cache
	dims    int
}

const (
	batchSize = 100
	cacheTTL  = 30 * 24 * time.Hour
)

// NewService wraps a backend. When dims > 0, every vector the backend
// returns must have exactly that length: the index column is fixed-width,
// so a mismatched model must fail here rather than at insert time.
func NewService(backend Backend, c *cache.Cache, dims int) *Service {
	return &Service{backend: backend, cache: c, dims: dims}
}

func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))

	// Resolve cache hits first; only misses go to the backend.
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if vec, ok := s.cachedVector(ctx, t); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	for start := 0; start < len(missTexts); start += batchSize {
		end := start + batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}

		vectors, err := s.backend.Embed(ctx, missTexts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", start/batchSize, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embed batch %d: got %d vectors for %d inputs", start/batchSize, len(vectors), end-start)
		}

		for j, vec := range vectors {
			if s.dims > 0 && len(vec) != s.dims {
				return nil, fmt.Errorf("embed batch %d: vector has %d dimensions, want %d", start/batchSize, len(vec), s.dims)
			}
			i := missIdx[start+j]
			out[i] = vec
			s.storeVector(ctx, texts[i], vec)
		}
	}

	return out, nil
}

func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

func (s *Service) cachedVector(ctx context.Context, text string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}
	var vec []float32
	if err := s.cache.Get(ctx, s.cacheKey(text), &vec); err != nil {
		return nil, false
	}
	return vec, len(vec) > 0
}

func (s *Service) storeVector(ctx context.Context, text string, vec []float32) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(text), vec, cacheTTL); err != nil {
		slog.Debug("embedding cache write failed", "error", err)
	}
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.backend.Model() + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}
