package vectorstore

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by every operation when the index could not be
// initialized. Callers surface it as a degraded state instead of crashing.
var ErrUnavailable = errors.New("vector index unavailable")

type Chunk struct {
	ID            string
	FileID        string
	FolderID      string
	Ordinal       int
	Content       string
	Embedding     []float32
	Filename      string
	FileExtension string
	UploadDate    time.Time
}

// Filter scopes queries and deletes by metadata. FileIDs is a "value in set"
// predicate and takes precedence in callers; FolderID is an equality
// predicate. The zero value matches the whole index.
type Filter struct {
	FileIDs  []string
	FolderID string
}

func (f Filter) Empty() bool {
	return len(f.FileIDs) == 0 && f.FolderID == ""
}

type Result struct {
	ChunkID       string    `json:"chunk_id"`
	FileID        string    `json:"file_id"`
	Filename      string    `json:"filename"`
	Content       string    `json:"content"`
	Ordinal       int       `json:"chunk_index"`
	FolderID      string    `json:"folder_id"`
	FileExtension string    `json:"file_extension"`
	UploadDate    time.Time `json:"upload_date"`
	Score         float64   `json:"similarity_score"` // 1 - cosine distance, higher is closer
}

type Store interface {
	Add(ctx context.Context, chunks []Chunk) error
	Query(ctx context.Context, embedding []float32, k int, filter Filter) ([]Result, error)
	// Delete removes every chunk matching the filter; a filter matching zero
	// rows is a no-op.
	Delete(ctx context.Context, filter Filter) error
	// Reset clears the whole index.
	Reset(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// NewUnavailable returns a Store whose every operation reports
// ErrUnavailable. It stands in when index initialization fails so the rest
// of the system degrades instead of dereferencing nil.
func NewUnavailable() Store {
	return unavailable{}
}

type unavailable struct{}

func (unavailable) Add(context.Context, []Chunk) error { return ErrUnavailable }

func (unavailable) Query(context.Context, []float32, int, Filter) ([]Result, error) {
	return nil, ErrUnavailable
}

func (unavailable) Delete(context.Context, Filter) error { return ErrUnavailable }
func (unavailable) Reset(context.Context) error          { return ErrUnavailable }
func (unavailable) Count(context.Context) (int64, error) { return 0, ErrUnavailable }
