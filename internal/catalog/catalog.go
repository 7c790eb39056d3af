package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragfuse/ragfuse/internal/vectorstore"
)

// RootFolderID is the distinguished top of the folder tree. It is seeded by
// the migrations and can never be deleted.
const RootFolderID = "root"

const maxFolderNameLen = 100

var (
	ErrNotFound      = errors.New("not found")
	ErrRootFolder    = errors.New("cannot delete root folder")
	ErrNameRequired  = errors.New("folder name required")
	ErrNameTooLong   = errors.New("folder name too long")
	ErrNameInvalid   = errors.New("invalid characters in folder name")
	ErrDuplicateName = errors.New("folder already exists")
)

var reservedNameChars = "/\\:*?\"<>|"

type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

type FileRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Extension   string    `json:"extension"`
	SizeBytes   int64     `json:"size"`
	ContentHash string    `json:"hash"`
	FolderID    string    `json:"folder_id"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	TextLength  int       `json:"text_length"`
}

type BreadcrumbEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Stats struct {
	TotalFiles     int64            `json:"total_files"`
	TotalFolders   int64            `json:"total_folders"`
	TotalSizeBytes int64            `json:"total_size_bytes"`
	FileTypes      map[string]int64 `json:"file_types"`
}

// Service owns the folder/file metadata tree. It is a pure metadata
// side-store: chunk vectors live in the vector index, keyed back to files by
// id, and deletion cascades from here into the index explicitly.
type Service struct {
	db         *pgxpool.Pool
	vectors    vectorstore.Store
	uploadsDir string
}

func NewService(db *pgxpool.Pool, vectors vectorstore.Store, uploadsDir string) *Service {
	return &Service{db: db, vectors: vectors, uploadsDir: uploadsDir}
}

// UploadPath returns where a file's raw bytes live on disk. Root-level files
// sit directly in the uploads dir; foldered files get a per-folder subdir.
func (s *Service) UploadPath(folderID, filename string) string {
	if folderID == RootFolderID {
		return filepath.Join(s.uploadsDir, filename)
	}
	return filepath.Join(s.uploadsDir, folderID, filename)
}

func ValidateFolderName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > maxFolderNameLen {
		return ErrNameTooLong
	}
	if strings.ContainsAny(name, reservedNameChars) {
		return ErrNameInvalid
	}
	return nil
}

func (s *Service) AddFolder(ctx context.Context, name, parentID string) (string, error) {
	name = strings.TrimSpace(name)
	if err := ValidateFolderName(name); err != nil {
		return "", err
	}
	if parentID == "" {
		parentID = RootFolderID
	}

	if _, err := s.GetFolder(ctx, parentID); err != nil {
		return "", fmt.Errorf("parent folder: %w", err)
	}

	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM folders WHERE parent_id = $1 AND name = $2)",
		parentID, name,
	).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("check sibling names: %w", err)
	}
	if exists {
		return "", ErrDuplicateName
	}

	id := newID()
	_, err = s.db.Exec(ctx,
		"INSERT INTO folders (id, name, parent_id, created_at) VALUES ($1, $2, $3, $4)",
		id, name, parentID, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert folder: %w", err)
	}
	return id, nil
}

func (s *Service) GetFolder(ctx context.Context, id string) (*Folder, error) {
	var f Folder
	err := s.db.QueryRow(ctx,
		"SELECT id, name, parent_id, created_at FROM folders WHERE id = $1", id,
	).Scan(&f.ID, &f.Name, &f.ParentID, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return &f, nil
}

func (s *Service) GetFile(ctx context.Context, id string) (*FileRecord, error) {
	var r FileRecord
	err := s.db.QueryRow(ctx,
		`SELECT id, name, extension, size_bytes, content_hash, folder_id, chunk_count, created_at, text_length
		 FROM files WHERE id = $1`, id,
	).Scan(&r.ID, &r.Name, &r.Extension, &r.SizeBytes, &r.ContentHash, &r.FolderID, &r.ChunkCount, &r.CreatedAt, &r.TextLength)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &r, nil
}

func (s *Service) AddFile(ctx context.Context, rec FileRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO files (id, name, extension, size_bytes, content_hash, folder_id, chunk_count, created_at, text_length)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Name, rec.Extension, rec.SizeBytes, rec.ContentHash, rec.FolderID, rec.ChunkCount, rec.CreatedAt, rec.TextLength,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// DeleteFile cascades: chunk vectors first, then the catalog row, then the
// physical bytes. Missing bytes on disk are a warning, not a failure.
func (s *Service) DeleteFile(ctx context.Context, id string) error {
	rec, err := s.GetFile(ctx, id)
	if err != nil {
		return err
	}

	if err := s.vectors.Delete(ctx, vectorstore.Filter{FileIDs: []string{id}}); err != nil {
		return fmt.Errorf("delete chunks for file %s: %w", id, err)
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM files WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete file row: %w", err)
	}

	s.removeUpload(rec.FolderID, rec.Name)
	return nil
}

// DeleteFolder removes a folder and everything under it. The walk is
// iterative, so deep trees cannot exhaust the call stack. Chunk vectors are
// deleted before catalog rows: a crash mid-way leaves catalog rows whose
// chunks are already gone (harmless, cleaned up by re-delete) rather than
// orphaned vectors with no catalog entry.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	if id == RootFolderID {
		return ErrRootFolder
	}
	if _, err := s.GetFolder(ctx, id); err != nil {
		return err
	}

	folderIDs, err := s.collectSubtree(ctx, id)
	if err != nil {
		return err
	}

	files, err := s.filesInFolders(ctx, folderIDs)
	if err != nil {
		return err
	}

	// Vectors first. Every chunk carries its containing folder id, so a
	// per-folder delete covers all files in that folder.
	for _, fid := range folderIDs {
		if err := s.vectors.Delete(ctx, vectorstore.Filter{FolderID: fid}); err != nil {
			return fmt.Errorf("delete chunks for folder %s: %w", fid, err)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM files WHERE folder_id = ANY($1)", folderIDs); err != nil {
		return fmt.Errorf("delete file rows: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM folders WHERE id = ANY($1)", folderIDs); err != nil {
		return fmt.Errorf("delete folder rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, rec := range files {
		s.removeUpload(rec.FolderID, rec.Name)
	}
	for _, fid := range folderIDs {
		if fid == RootFolderID {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.uploadsDir, fid)); err != nil {
			slog.Warn("failed to remove upload dir", "folder_id", fid, "error", err)
		}
	}

	return nil
}

// collectSubtree returns id plus every descendant folder id, breadth-first.
func (s *Service) collectSubtree(ctx context.Context, id string) ([]string, error) {
	all := []string{id}
	queue := []string{id}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		rows, err := s.db.Query(ctx, "SELECT id FROM folders WHERE parent_id = $1", current)
		if err != nil {
			return nil, fmt.Errorf("list subfolders of %s: %w", current, err)
		}
		for rows.Next() {
			var child string
			if err := rows.Scan(&child); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan subfolder: %w", err)
			}
			all = append(all, child)
			queue = append(queue, child)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return all, nil
}

func (s *Service) filesInFolders(ctx context.Context, folderIDs []string) ([]FileRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, extension, size_bytes, content_hash, folder_id, chunk_count, created_at, text_length
		 FROM files WHERE folder_id = ANY($1)`, folderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var r FileRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Extension, &r.SizeBytes, &r.ContentHash, &r.FolderID, &r.ChunkCount, &r.CreatedAt, &r.TextLength); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, r)
	}
	return files, rows.Err()
}

func (s *Service) Children(ctx context.Context, id string) ([]Folder, []FileRecord, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, name, parent_id, created_at FROM folders WHERE parent_id = $1 ORDER BY name", id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("list subfolders: %w", err)
	}
	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &f.CreatedAt); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	files, err := s.filesInFolders(ctx, []string{id})
	if err != nil {
		return nil, nil, err
	}
	return folders, files, nil
}

// Breadcrumb walks parent links from id up to root and returns the chain in
// root-first order. The visited set guards against a corrupted tree looping
// forever.
func (s *Service) Breadcrumb(ctx context.Context, id string) ([]BreadcrumbEntry, error) {
	var chain []BreadcrumbEntry
	visited := make(map[string]bool)
	current := id

	for current != "" && !visited[current] {
		visited[current] = true
		f, err := s.GetFolder(ctx, current)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append([]BreadcrumbEntry{{ID: f.ID, Name: f.Name}}, chain...)
		if f.ParentID == nil {
			break
		}
		current = *f.ParentID
	}

	return chain, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{FileTypes: make(map[string]int64)}

	err := s.db.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM files",
	).Scan(&st.TotalFiles, &st.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("file stats: %w", err)
	}

	err = s.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM folders WHERE id != $1", RootFolderID,
	).Scan(&st.TotalFolders)
	if err != nil {
		return nil, fmt.Errorf("folder stats: %w", err)
	}

	rows, err := s.db.Query(ctx, "SELECT extension, COUNT(*) FROM files GROUP BY extension")
	if err != nil {
		return nil, fmt.Errorf("file type histogram: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ext string
		var n int64
		if err := rows.Scan(&ext, &n); err != nil {
			return nil, fmt.Errorf("scan histogram row: %w", err)
		}
		st.FileTypes[ext] = n
	}
	return st, rows.Err()
}

// All returns the flat folder and file lists used for context selection.
func (s *Service) All(ctx context.Context) ([]Folder, []FileRecord, error) {
	rows, err := s.db.Query(ctx, "SELECT id, name, parent_id, created_at FROM folders ORDER BY name")
	if err != nil {
		return nil, nil, fmt.Errorf("list folders: %w", err)
	}
	var folders []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &f.CreatedAt); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	fileRows, err := s.db.Query(ctx,
		`SELECT id, name, extension, size_bytes, content_hash, folder_id, chunk_count, created_at, text_length
		 FROM files ORDER BY name`,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("list files: %w", err)
	}
	defer fileRows.Close()
	var files []FileRecord
	for fileRows.Next() {
		var r FileRecord
		if err := fileRows.Scan(&r.ID, &r.Name, &r.Extension, &r.SizeBytes, &r.ContentHash, &r.FolderID, &r.ChunkCount, &r.CreatedAt, &r.TextLength); err != nil {
			return nil, nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, r)
	}
	return folders, files, fileRows.Err()
}

// Clear wipes every file and every folder except root, plus the physical
// uploads directory contents. The vector index is reset separately by the
// caller.
func (s *Service) Clear(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM files"); err != nil {
		return fmt.Errorf("clear files: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM folders WHERE id != $1", RootFolderID); err != nil {
		return fmt.Errorf("clear folders: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	entries, err := os.ReadDir(s.uploadsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read uploads dir", "error", err)
		}
		return nil
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.uploadsDir, e.Name())); err != nil {
			slog.Warn("failed to remove upload", "name", e.Name(), "error", err)
		}
	}
	return nil
}

func (s *Service) removeUpload(folderID, name string) {
	path := s.UploadPath(folderID, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("physical file already missing", "path", path)
		} else {
			slog.Error("failed to remove physical file", "path", path, "error", err)
		}
	}
}
