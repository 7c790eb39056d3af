package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragfuse/ragfuse/internal/catalog"
	"github.com/ragfuse/ragfuse/internal/embedding"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
	"github.com/ragfuse/ragfuse/pkg/chunker"
)

type fakeCatalog struct {
	dir        string
	folderErr  error
	addFileErr error
	added      []catalog.FileRecord
}

func (f *fakeCatalog) GetFolder(_ context.Context, id string) (*catalog.Folder, error) {
	if f.folderErr != nil {
		return nil, f.folderErr
	}
	return &catalog.Folder{ID: id}, nil
}

func (f *fakeCatalog) AddFile(_ context.Context, rec catalog.FileRecord) error {
	if f.addFileErr != nil {
		return f.addFileErr
	}
	f.added = append(f.added, rec)
	return nil
}

func (f *fakeCatalog) UploadPath(folderID, filename string) string {
	if folderID == catalog.RootFolderID {
		return filepath.Join(f.dir, filename)
	}
	return filepath.Join(f.dir, folderID, filename)
}

type fakeStore struct {
	addErr  error
	added   []vectorstore.Chunk
	deleted []vectorstore.Filter
}

func (f *fakeStore) Add(_ context.Context, chunks []vectorstore.Chunk) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, chunks...)
	return nil
}

func (f *fakeStore) Query(context.Context, []float32, int, vectorstore.Filter) ([]vectorstore.Result, error) {
	return nil, nil
}

func (f *fakeStore) Delete(_ context.Context, filter vectorstore.Filter) error {
	f.deleted = append(f.deleted, filter)
	return nil
}

func (f *fakeStore) Reset(context.Context) error { return nil }

func (f *fakeStore) Count(context.Context) (int64, error) { return int64(len(f.added)), nil }

type fixedBackend struct {
	err error
}

func (b fixedBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.5}
	}
	return out, nil
}

func (fixedBackend) Model() string { return "fixed" }

func newTestPipeline(t *testing.T, cat *fakeCatalog, store *fakeStore, backend embedding.Backend) *Pipeline {
	t.Helper()
	if cat.dir == "" {
		cat.dir = t.TempDir()
	}
	embedder := embedding.NewService(backend, nil, 0)
	return NewPipeline(cat, store, embedder, chunker.New(chunker.DefaultOptions()), 1<<20)
}

func savedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var names []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, d.Name())
		}
		return nil
	})
	require.NoError(t, err)
	return names
}

func TestProcessAllSuccess(t *testing.T) {
	cat := &fakeCatalog{}
	store := &fakeStore{}
	p := newTestPipeline(t, cat, store, fixedBackend{})

	result, err := p.ProcessAll(context.Background(), []FileUpload{{
		Filename: "note.txt",
		Size:     11,
		Data:     strings.NewReader("hello world"),
	}}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"note.txt"}, result.Uploaded)
	assert.Equal(t, 1, result.TotalChunks)

	require.Len(t, cat.added, 1)
	rec := cat.added[0]
	assert.Equal(t, "note.txt", rec.Name)
	assert.Equal(t, "txt", rec.Extension)
	assert.Equal(t, int64(11), rec.SizeBytes)
	assert.Len(t, rec.ContentHash, 32)
	assert.Equal(t, 1, rec.ChunkCount)
	assert.Equal(t, catalog.RootFolderID, rec.FolderID)

	require.Len(t, store.added, 1)
	assert.Equal(t, ChunkID(rec.ID, 0), store.added[0].ID)
	assert.Equal(t, "hello world", store.added[0].Content)

	assert.Equal(t, []string{"note.txt"}, savedFiles(t, cat.dir))
}

func TestProcessAllMissingFolder(t *testing.T) {
	cat := &fakeCatalog{folderErr: catalog.ErrNotFound}
	p := newTestPipeline(t, cat, &fakeStore{}, fixedBackend{})

	_, err := p.ProcessAll(context.Background(), nil, "gone")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestProcessAllRejectsEmptyTextAndRemovesBytes(t *testing.T) {
	cat := &fakeCatalog{}
	store := &fakeStore{}
	p := newTestPipeline(t, cat, store, fixedBackend{})

	result, err := p.ProcessAll(context.Background(), []FileUpload{{
		Filename: "blank.txt",
		Size:     3,
		Data:     strings.NewReader("   "),
	}}, "")
	require.NoError(t, err)

	assert.Empty(t, result.Uploaded)
	assert.Empty(t, store.added)
	assert.Empty(t, cat.added)
	assert.Empty(t, savedFiles(t, cat.dir))
}

func TestProcessAllEmbedFailureRollsBack(t *testing.T) {
	cat := &fakeCatalog{}
	store := &fakeStore{}
	p := newTestPipeline(t, cat, store, fixedBackend{err: errors.New("quota exceeded")})

	result, err := p.ProcessAll(context.Background(), []FileUpload{{
		Filename: "doc.txt",
		Size:     9,
		Data:     strings.NewReader("some text"),
	}}, "")
	require.NoError(t, err)

	assert.Empty(t, result.Uploaded)
	assert.Empty(t, store.added)
	assert.Empty(t, cat.added)
	assert.Empty(t, savedFiles(t, cat.dir))
}

func TestProcessAllCatalogFailureUnwindsIndex(t *testing.T) {
	cat := &fakeCatalog{addFileErr: errors.New("disk full")}
	store := &fakeStore{}
	p := newTestPipeline(t, cat, store, fixedBackend{})

	result, err := p.ProcessAll(context.Background(), []FileUpload{{
		Filename: "doc.txt",
		Size:     9,
		Data:     strings.NewReader("some text"),
	}}, "")
	require.NoError(t, err)
	assert.Empty(t, result.Uploaded)

	// The indexed chunks must be deleted again once the catalog write fails.
	require.Len(t, store.deleted, 1)
	require.Len(t, store.deleted[0].FileIDs, 1)
	assert.Equal(t, store.added[0].FileID, store.deleted[0].FileIDs[0])

	assert.Empty(t, savedFiles(t, cat.dir))
}

func TestProcessAllIndexUnavailableAbortsRequest(t *testing.T) {
	cat := &fakeCatalog{}
	store := &fakeStore{addErr: vectorstore.ErrUnavailable}
	p := newTestPipeline(t, cat, store, fixedBackend{})

	_, err := p.ProcessAll(context.Background(), []FileUpload{{
		Filename: "doc.txt",
		Size:     9,
		Data:     strings.NewReader("some text"),
	}}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, vectorstore.ErrUnavailable)

	assert.Empty(t, cat.added)
	assert.Empty(t, savedFiles(t, cat.dir))
}

func TestProcessAllSkipsInvalidSiblings(t *testing.T) {
	cat := &fakeCatalog{}
	store := &fakeStore{}
	p := newTestPipeline(t, cat, store, fixedBackend{})

	result, err := p.ProcessAll(context.Background(), []FileUpload{
		{Filename: "tool.exe", Size: 6, Data: strings.NewReader("MZ....")},
		{Filename: "ok.txt", Size: 7, Data: strings.NewReader("content")},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"ok.txt"}, result.Uploaded)
	require.Len(t, cat.added, 1)
	assert.Equal(t, []string{"ok.txt"}, savedFiles(t, cat.dir))
}

func TestProcessAllRejectsOversizeFile(t *testing.T) {
	cat := &fakeCatalog{dir: t.TempDir()}
	store := &fakeStore{}
	embedder := embedding.NewService(fixedBackend{}, nil, 0)
	p := NewPipeline(cat, store, embedder, chunker.New(chunker.DefaultOptions()), 4)

	result, err := p.ProcessAll(context.Background(), []FileUpload{{
		Filename: "big.txt",
		Size:     5,
		Data:     strings.NewReader("12345"),
	}}, "")
	require.NoError(t, err)

	assert.Empty(t, result.Uploaded)
	assert.Empty(t, savedFiles(t, cat.dir))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my notes.txt", "my_notes.txt"},
		{"../../etc/passwd", "passwd"},
		{`..\..\boot.ini`, "boot.ini"},
		{"weird:name?.md", "weird_name_.md"},
		{"..hidden.txt", "hidden.txt"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace("  a\n\nb\t c  "))
	assert.Equal(t, "", normalizeWhitespace("  \n\t "))
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "f1_chunk_0", ChunkID("f1", 0))
	assert.Equal(t, "f1_chunk_12", ChunkID("f1", 12))
}
