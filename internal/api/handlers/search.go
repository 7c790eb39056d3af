package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ragfuse/ragfuse/internal/retrieval"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
)

type SearchHandler struct {
	assembler *retrieval.Assembler
}

func NewSearchHandler(a *retrieval.Assembler) *SearchHandler {
	return &SearchHandler{assembler: a}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query             string   `json:"query"`
		FolderID          string   `json:"folder_id"`
		SelectedDocuments []string `json:"selected_documents"`
		NResults          int      `json:"n_results"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	scope := retrieval.Scope{
		SelectedDocuments: req.SelectedDocuments,
		FolderID:          req.FolderID,
	}
	results, err := h.assembler.Search(r.Context(), req.Query, req.NResults, scope)
	if err != nil {
		if errors.Is(err, vectorstore.ErrUnavailable) {
			writeError(w, http.StatusInternalServerError, "vector index unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":       results,
		"query":         req.Query,
		"total_results": len(results),
	})
}
