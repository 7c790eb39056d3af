// Package retrieval answers two questions: which indexed chunks are relevant
// to a query, and what context a chat turn should carry into the model.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ragfuse/ragfuse/internal/catalog"
	"github.com/ragfuse/ragfuse/internal/conversation"
	"github.com/ragfuse/ragfuse/internal/embedding"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
	"github.com/ragfuse/ragfuse/internal/websearch"
)

// Scope narrows retrieval to a document set or a folder. An explicit
// document set wins over the folder; the root folder (or none) means the
// whole corpus.
type Scope struct {
	SelectedDocuments []string
	FolderID          string
}

func (s Scope) filter() vectorstore.Filter {
	if len(s.SelectedDocuments) > 0 {
		return vectorstore.Filter{FileIDs: s.SelectedDocuments}
	}
	if s.FolderID != "" && s.FolderID != catalog.RootFolderID {
		return vectorstore.Filter{FolderID: s.FolderID}
	}
	return vectorstore.Filter{}
}

// SettingsReader provides the prompt template override, when one is set.
type SettingsReader interface {
	Get(ctx context.Context, key string) (string, error)
}

type Options struct {
	SearchTopK       int
	ContextTopK      int
	MaxWebResults    int
	WebSearchTimeout time.Duration
}

type Assembler struct {
	vectors  vectorstore.Store
	embedder *embedding.Service
	web      websearch.Searcher
	settings SettingsReader
	opts     Options
}

func NewAssembler(vectors vectorstore.Store, embedder *embedding.Service, web websearch.Searcher, settings SettingsReader, opts Options) *Assembler {
	if opts.SearchTopK <= 0 {
		opts.SearchTopK = 5
	}
	if opts.ContextTopK <= 0 {
		opts.ContextTopK = 3
	}
	if opts.MaxWebResults <= 0 {
		opts.MaxWebResults = 3
	}
	if opts.WebSearchTimeout <= 0 {
		opts.WebSearchTimeout = 10 * time.Second
	}
	return &Assembler{
		vectors:  vectors,
		embedder: embedder,
		web:      web,
		settings: settings,
		opts:     opts,
	}
}

// Search embeds the query and returns the k nearest chunks within scope.
func (a *Assembler) Search(ctx context.Context, query string, k int, scope Scope) ([]vectorstore.Result, error) {
	if k <= 0 {
		k = a.opts.SearchTopK
	}
	vec, err := a.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := a.vectors.Query(ctx, vec, k, scope.filter())
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return results, nil
}

// Assembly is everything a chat turn carries into generation: the raw
// context parts, the final prompt, and the sources shown to the user.
type Assembly struct {
	Prompt       string
	ContextParts []string
	Sources      []conversation.Source
}

// AssembleChat gathers document context (and optionally web context) for a
// chat query and renders the final prompt. A web search failure degrades
// silently to document-only context; an unavailable vector index is a hard
// failure and propagates to the caller.
func (a *Assembler) AssembleChat(ctx context.Context, query string, scope Scope, includeWeb bool) (*Assembly, error) {
	asm := &Assembly{}

	docs, err := a.Search(ctx, query, a.opts.ContextTopK, scope)
	if err != nil {
		if errors.Is(err, vectorstore.ErrUnavailable) {
			return nil, err
		}
		slog.Warn("document retrieval failed, continuing without document context", "error", err)
	}
	for _, d := range docs {
		asm.ContextParts = append(asm.ContextParts, d.Content)
		idx := d.Ordinal
		score := d.Score
		asm.Sources = append(asm.Sources, conversation.Source{
			Filename:   d.Filename,
			Type:       "document",
			ChunkIndex: &idx,
			Similarity: &score,
		})
	}

	if includeWeb && a.web != nil {
		for _, r := range a.webResults(ctx, query) {
			asm.ContextParts = append(asm.ContextParts,
				fmt.Sprintf("Title: %s\nURL: %s\nSnippet: %s", r.Title, r.URL, r.Snippet))
			asm.Sources = append(asm.Sources, conversation.Source{
				Filename: r.Title,
				Type:     "web",
				URL:      r.URL,
				Snippet:  r.Snippet,
			})
		}
	}

	template := ""
	if a.settings != nil {
		if tpl, err := a.settings.Get(ctx, "custom_llm_prompt"); err == nil {
			template = tpl
		}
	}
	asm.Prompt = BuildPrompt(template, query, asm.ContextParts)
	return asm, nil
}

func (a *Assembler) webResults(ctx context.Context, query string) []websearch.Result {
	ctx, cancel := context.WithTimeout(ctx, a.opts.WebSearchTimeout)
	defer cancel()

	results, err := a.web.Search(ctx, query, a.opts.MaxWebResults)
	if err != nil {
		slog.Warn("web search failed, continuing without web context", "error", err)
		return nil
	}
	if len(results) > a.opts.MaxWebResults {
		results = results[:a.opts.MaxWebResults]
	}
	return results
}

// BuildPrompt renders the model prompt. A custom template may reference
// {{context}} and {{query}}; without one, a fixed wrapper is used. With no
// context at all, the query goes through bare.
func BuildPrompt(template, query string, contextParts []string) string {
	joined := strings.Join(contextParts, "\n\n")
	if strings.TrimSpace(template) != "" {
		out := strings.ReplaceAll(template, "{{context}}", joined)
		out = strings.ReplaceAll(out, "{{query}}", query)
		return out
	}
	if joined == "" {
		return query
	}
	return fmt.Sprintf("Given the following context:\n\n%s\n\nAnswer the question: %s", joined, query)
}
