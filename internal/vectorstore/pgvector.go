package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PgVectorStore struct {
	db *pgxpool.Pool
}

// NewPgVectorStore verifies the pgvector extension is installed before
// handing out a store, so initialization failure surfaces at startup and the
// caller can fall back to the unavailable stub.
func NewPgVectorStore(ctx context.Context, db *pgxpool.Pool) (*PgVectorStore, error) {
	var installed bool
	err := db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector')",
	).Scan(&installed)
	if err != nil {
		return nil, fmt.Errorf("check pgvector extension: %w", err)
	}
	if !installed {
		return nil, fmt.Errorf("pgvector extension not installed")
	}
	return &PgVectorStore{db: db}, nil
}

func (s *PgVectorStore) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		embedding := pgvector.NewVector(c.Embedding)

		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (id, file_id, folder_id, ordinal, content, embedding, filename, file_extension, upload_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET content = $5, embedding = $6`,
			c.ID, c.FileID, c.FolderID, c.Ordinal, c.Content, embedding, c.Filename, c.FileExtension, c.UploadDate,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorStore) Query(ctx context.Context, embedding []float32, k int, filter Filter) ([]Result, error) {
	if k <= 0 {
		k = 5
	}

	vec := pgvector.NewVector(embedding)

	where, args := buildWhere(filter, 2)
	args = append([]any{vec}, args...)
	args = append(args, k)

	query := fmt.Sprintf(
		`SELECT id, file_id, filename, content, ordinal, folder_id, file_extension, upload_date,
		        1 - (embedding <=> $1) AS score
		 FROM chunks
		 %s
		 ORDER BY embedding <=> $1
		 LIMIT $%d`,
		where, len(args),
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ChunkID, &r.FileID, &r.Filename, &r.Content, &r.Ordinal, &r.FolderID, &r.FileExtension, &r.UploadDate, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgVectorStore) Delete(ctx context.Context, filter Filter) error {
	if filter.Empty() {
		// Full wipes go through Reset, never an unfiltered delete.
		return fmt.Errorf("delete requires a filter")
	}

	where, args := buildWhere(filter, 1)
	_, err := s.db.Exec(ctx, "DELETE FROM chunks "+where, args...)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (s *PgVectorStore) Reset(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "TRUNCATE chunks"); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	return nil
}

func (s *PgVectorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// buildWhere renders the filter as a WHERE clause with placeholders starting
// at argOffset.
func buildWhere(filter Filter, argOffset int) (string, []any) {
	var conds []string
	var args []any

	if len(filter.FileIDs) > 0 {
		conds = append(conds, fmt.Sprintf("file_id = ANY($%d)", argOffset+len(args)))
		args = append(args, filter.FileIDs)
	} else if filter.FolderID != "" {
		conds = append(conds, fmt.Sprintf("folder_id = $%d", argOffset+len(args)))
		args = append(args, filter.FolderID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
