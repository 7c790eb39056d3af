package handlers

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/ragfuse/ragfuse/internal/catalog"
	"github.com/ragfuse/ragfuse/pkg/textextract"
)

type FileHandler struct {
	catalog *catalog.Service
}

func NewFileHandler(cat *catalog.Service) *FileHandler {
	return &FileHandler{catalog: cat}
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.catalog.GetFile(r.Context(), id); err != nil {
		writeError(w, catalogStatus(err), "file not found")
		return
	}
	if err := h.catalog.DeleteFile(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

// Content serves a file's content: PDFs stream as raw bytes, every other
// supported type returns its extracted text as JSON.
func (h *FileHandler) Content(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.catalog.GetFile(r.Context(), id)
	if err != nil {
		writeError(w, catalogStatus(err), "file not found")
		return
	}

	path := h.catalog.UploadPath(rec.FolderID, rec.Name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "file content not found on disk")
		return
	}

	switch {
	case rec.Extension == "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		http.ServeFile(w, r, path)
	case textextract.IsSupported(rec.Extension):
		text, err := textextract.ExtractFile(path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to extract file content")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"filename": rec.Name,
			"content":  text,
		})
	default:
		writeError(w, http.StatusBadRequest, "unsupported file type")
	}
}
