// Package ingest turns uploaded files into indexed, cataloged chunks:
// validate, save bytes, extract text, chunk, embed, index, record. A failure
// at any step rolls back everything done for that file, so no partial state
// survives a rejected upload.
package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ragfuse/ragfuse/internal/catalog"
	"github.com/ragfuse/ragfuse/internal/embedding"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
	"github.com/ragfuse/ragfuse/pkg/chunker"
	"github.com/ragfuse/ragfuse/pkg/textextract"
)

// Catalog is the slice of the folder/file catalog the pipeline depends on.
type Catalog interface {
	GetFolder(ctx context.Context, id string) (*catalog.Folder, error)
	AddFile(ctx context.Context, rec catalog.FileRecord) error
	UploadPath(folderID, filename string) string
}

type Pipeline struct {
	catalog      Catalog
	vectors      vectorstore.Store
	embedder     *embedding.Service
	chunker      chunker.Chunker
	maxFileBytes int64
}

func NewPipeline(cat Catalog, vectors vectorstore.Store, embedder *embedding.Service, ch chunker.Chunker, maxFileBytes int64) *Pipeline {
	return &Pipeline{
		catalog:      cat,
		vectors:      vectors,
		embedder:     embedder,
		chunker:      ch,
		maxFileBytes: maxFileBytes,
	}
}

type FileUpload struct {
	Filename string
	Size     int64
	Data     io.Reader
}

type Result struct {
	Uploaded    []string `json:"files"`
	TotalChunks int      `json:"total_chunks"`
}

// ProcessAll ingests each upload independently: one file's failure skips
// that file and continues with its siblings. The target folder must exist.
func (p *Pipeline) ProcessAll(ctx context.Context, uploads []FileUpload, folderID string) (*Result, error) {
	if folderID == "" {
		folderID = catalog.RootFolderID
	}
	if _, err := p.catalog.GetFolder(ctx, folderID); err != nil {
		return nil, fmt.Errorf("target folder: %w", err)
	}

	result := &Result{}
	for _, up := range uploads {
		chunks, err := p.processOne(ctx, up, folderID)
		if err != nil {
			// An unavailable index is a hard dependency failure, not a
			// per-file defect; it aborts the whole request.
			if errors.Is(err, vectorstore.ErrUnavailable) {
				return nil, err
			}
			slog.Error("file rejected", "filename", up.Filename, "error", err)
			continue
		}
		result.Uploaded = append(result.Uploaded, sanitizeFilename(up.Filename))
		result.TotalChunks += chunks
	}
	return result, nil
}

// processOne runs one file through the pipeline. Any error removes the saved
// bytes and any indexed chunks before returning, so a rejected file leaves
// no orphaned state.
func (p *Pipeline) processOne(ctx context.Context, up FileUpload, folderID string) (int, error) {
	filename := sanitizeFilename(up.Filename)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

	if filename == "" || ext == "" || !textextract.IsSupported(ext) {
		return 0, fmt.Errorf("disallowed file type: %q", up.Filename)
	}
	if p.maxFileBytes > 0 && up.Size > p.maxFileBytes {
		return 0, fmt.Errorf("file exceeds size cap: %d bytes", up.Size)
	}

	savePath := p.catalog.UploadPath(folderID, filename)
	size, hash, err := saveUpload(savePath, up.Data)
	if err != nil {
		return 0, err
	}
	cleanupBytes := func() {
		if err := os.Remove(savePath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove rejected upload", "path", savePath, "error", err)
		}
	}

	text, err := textextract.ExtractFile(savePath)
	if err != nil {
		cleanupBytes()
		return 0, fmt.Errorf("extract text: %w", err)
	}
	text = normalizeWhitespace(text)
	if text == "" {
		cleanupBytes()
		return 0, fmt.Errorf("no text extracted")
	}

	chunks := p.chunker.Chunk(text)
	if len(chunks) == 0 {
		cleanupBytes()
		return 0, fmt.Errorf("no chunks produced")
	}

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		cleanupBytes()
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	// Fresh id per accepted file; chunk ids are namespaced under it so
	// concurrent uploads can never collide.
	fileID := uuid.NewString()
	now := time.Now().UTC()

	records := make([]vectorstore.Chunk, len(chunks))
	for i, content := range chunks {
		records[i] = vectorstore.Chunk{
			ID:            ChunkID(fileID, i),
			FileID:        fileID,
			FolderID:      folderID,
			Ordinal:       i,
			Content:       content,
			Embedding:     embeddings[i],
			Filename:      filename,
			FileExtension: ext,
			UploadDate:    now,
		}
	}

	if err := p.vectors.Add(ctx, records); err != nil {
		cleanupBytes()
		return 0, fmt.Errorf("index chunks: %w", err)
	}

	err = p.catalog.AddFile(ctx, catalog.FileRecord{
		ID:          fileID,
		Name:        filename,
		Extension:   ext,
		SizeBytes:   size,
		ContentHash: hash,
		FolderID:    folderID,
		ChunkCount:  len(chunks),
		CreatedAt:   now,
		TextLength:  len(text),
	})
	if err != nil {
		// Unwind the index write so no vectors outlive a failed catalog row.
		if delErr := p.vectors.Delete(ctx, vectorstore.Filter{FileIDs: []string{fileID}}); delErr != nil {
			slog.Error("rollback of indexed chunks failed", "file_id", fileID, "error", delErr)
		}
		cleanupBytes()
		return 0, fmt.Errorf("record file: %w", err)
	}

	return len(chunks), nil
}

// ChunkID derives the deterministic chunk id for a file and ordinal.
func ChunkID(fileID string, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", fileID, ordinal)
}

func saveUpload(path string, data io.Reader) (int64, string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, "", fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, "", fmt.Errorf("save upload: %w", err)
	}

	hasher := md5.New()
	size, err := io.Copy(io.MultiWriter(f, hasher), data)
	closeErr := f.Close()
	if err != nil || closeErr != nil {
		os.Remove(path)
		if err == nil {
			err = closeErr
		}
		return 0, "", fmt.Errorf("write upload: %w", err)
	}

	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	unsafeCharRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// sanitizeFilename flattens any path components and replaces characters
// unsafe for the uploads directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeCharRe.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}
