package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ragfuse/ragfuse/internal/catalog"
	"github.com/ragfuse/ragfuse/internal/ingest"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
)

type UploadHandler struct {
	pipeline     *ingest.Pipeline
	maxFileBytes int64
}

func NewUploadHandler(p *ingest.Pipeline, maxFileBytes int64) *UploadHandler {
	return &UploadHandler{pipeline: p, maxFileBytes: maxFileBytes}
}

// Upload accepts a multipart form with one or more "file" parts and an
// optional "folder_id". Files are ingested independently; the response lists
// only the ones that made it all the way in.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Parts beyond the memory threshold spill to temp files; the size cap
	// itself is enforced per file below.
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	for _, fh := range headers {
		if fh.Size > h.maxFileBytes {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file %q exceeds the %dMB limit", fh.Filename, h.maxFileBytes>>20))
			return
		}
	}

	uploads := make([]ingest.FileUpload, 0, len(headers))
	var opened []interface{ Close() error }
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, ingest.FileUpload{
			Filename: fh.Filename,
			Size:     fh.Size,
			Data:     f,
		})
	}

	folderID := r.FormValue("folder_id")
	result, err := h.pipeline.ProcessAll(r.Context(), uploads, folderID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			writeError(w, http.StatusNotFound, "folder not found")
		case errors.Is(err, vectorstore.ErrUnavailable):
			writeError(w, http.StatusInternalServerError, "vector index unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	if len(result.Uploaded) == 0 {
		writeError(w, http.StatusBadRequest, "no files could be processed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      fmt.Sprintf("%d file(s) uploaded", len(result.Uploaded)),
		"files":        result.Uploaded,
		"total_chunks": result.TotalChunks,
	})
}
