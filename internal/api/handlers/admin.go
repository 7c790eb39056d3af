package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ragfuse/ragfuse/internal/catalog"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
)

type AdminHandler struct {
	catalog *catalog.Service
	vectors vectorstore.Store
}

func NewAdminHandler(cat *catalog.Service, vectors vectorstore.Store) *AdminHandler {
	return &AdminHandler{catalog: cat, vectors: vectors}
}

// Stats reports catalog and index totals. Failures degrade to zeroed
// defaults rather than an error so dashboards keep rendering.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context())
	if err != nil {
		slog.Warn("stats query failed", "error", err)
		stats = &catalog.Stats{FileTypes: map[string]int64{}}
	}

	chunks, err := h.vectors.Count(r.Context())
	if err != nil {
		slog.Warn("chunk count failed", "error", err)
		chunks = 0
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_files":      stats.TotalFiles,
		"total_folders":    stats.TotalFolders,
		"total_size_bytes": stats.TotalSizeBytes,
		"file_types":       stats.FileTypes,
		"total_chunks":     chunks,
	})
}

// ClearDatabase wipes the vector index, the catalog (except root), and the
// physical uploads.
func (h *AdminHandler) ClearDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.vectors.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear vector index")
		return
	}
	if err := h.catalog.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear catalog")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Database cleared"})
}
