package chunker

import (
	"strings"
	"unicode/utf8"
)

type Chunker interface {
	Chunk(text string) []string
}

type Options struct {
	TargetSize    int    // target chunk size in characters
	Overlap       int    // character overlap between consecutive chunks (sentence strategy)
	MinChunkChars int    // chunks shorter than this are merged into the previous chunk
	Strategy      string // "semantic", "sentence"
}

func DefaultOptions() Options {
	return Options{
		TargetSize:    1000,
		Overlap:       200,
		MinChunkChars: 50,
		Strategy:      "semantic",
	}
}

type chunker struct {
	opts Options
}

func New(opts Options) Chunker {
	if opts.TargetSize <= 0 {
		opts.TargetSize = 1000
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.Overlap >= opts.TargetSize {
		opts.Overlap = opts.TargetSize / 5
	}
	if opts.MinChunkChars < 0 {
		opts.MinChunkChars = 0
	}
	return &chunker{opts: opts}
}

func (c *chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	// Short inputs pass through as a single chunk.
	if utf8.RuneCountInString(text) <= c.opts.TargetSize {
		return []string{text}
	}

	var chunks []string
	switch c.opts.Strategy {
	case "sentence":
		chunks = chunkBySentence(text, c.opts)
	default:
		chunks = chunkSemantic(text, c.opts)
		if len(chunks) == 0 {
			chunks = chunkBySentence(text, c.opts)
		}
	}

	return mergeShort(chunks, c.opts.MinChunkChars)
}

// chunkSemantic splits on structural boundaries, preferring paragraph breaks
// over line breaks over sentence ends, so chunks never cut mid-sentence.
func chunkSemantic(text string, opts Options) []string {
	separators := []string{"\n\n", "\n", ". ", " "}

	var chunks []string
	for _, part := range splitRecursive(text, separators, opts.TargetSize) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, part)
	}
	return chunks
}

func splitRecursive(text string, separators []string, targetSize int) []string {
	if utf8.RuneCountInString(text) <= targetSize {
		return []string{text}
	}

	if len(separators) == 0 {
		// No boundary left; hard-split on rune count.
		var result []string
		runes := []rune(text)
		for i := 0; i < len(runes); i += targetSize {
			end := i + targetSize
			if end > len(runes) {
				end = len(runes)
			}
			result = append(result, string(runes[i:end]))
		}
		return result
	}

	sep := separators[0]
	parts := strings.Split(text, sep)
	var result []string
	var current strings.Builder

	for _, part := range parts {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+sep+part) > targetSize {
			result = append(result, splitRecursive(current.String(), separators[1:], targetSize)...)
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(part)
	}

	if current.Len() > 0 {
		result = append(result, splitRecursive(current.String(), separators[1:], targetSize)...)
	}

	return result
}

// chunkBySentence accumulates whole sentences up to the target size and
// carries a bounded character overlap into the next chunk so spans that
// straddle a boundary stay retrievable from at least one chunk.
func chunkBySentence(text string, opts Options) []string {
	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder

	for _, s := range sentences {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+s) > opts.TargetSize {
			chunk := strings.TrimSpace(current.String())
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			current.Reset()
			if opts.Overlap > 0 {
				current.WriteString(tailRunes(chunk, opts.Overlap))
				current.WriteString(" ")
			}
		}
		current.WriteString(s)
	}

	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		boundary := r == '.' || r == '!' || r == '?' || r == '\n'
		if boundary && i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// mergeShort folds chunks below the minimum character floor into their
// predecessor, keeping emission order intact. A lone sub-floor chunk is
// kept rather than dropped.
func mergeShort(chunks []string, minChars int) []string {
	if minChars <= 0 || len(chunks) == 0 {
		return chunks
	}

	merged := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if utf8.RuneCountInString(c) < minChars && len(merged) > 0 {
			merged[len(merged)-1] = merged[len(merged)-1] + " " + c
			continue
		}
		merged = append(merged, c)
	}

	return merged
}
