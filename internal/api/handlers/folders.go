package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ragfuse/ragfuse/internal/catalog"
)

type FolderHandler struct {
	catalog *catalog.Service
}

func NewFolderHandler(cat *catalog.Service) *FolderHandler {
	return &FolderHandler{catalog: cat}
}

// All returns the flat folder and file listing for the whole catalog.
func (h *FolderHandler) All(w http.ResponseWriter, r *http.Request) {
	folders, files, err := h.catalog.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"folders": folders,
		"files":   files,
	})
}

// Get returns one folder with its breadcrumb and direct contents.
func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	folder, err := h.catalog.GetFolder(r.Context(), id)
	if err != nil {
		writeError(w, catalogStatus(err), "folder not found")
		return
	}

	breadcrumb, err := h.catalog.Breadcrumb(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build breadcrumb")
		return
	}

	folders, files, err := h.catalog.Children(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list folder contents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"folder":     folder,
		"breadcrumb": breadcrumb,
		"contents": map[string]interface{}{
			"folders": folders,
			"files":   files,
		},
	})
}

func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.catalog.AddFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeError(w, catalogStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Folder created",
		"folder":  map[string]string{"id": id, "name": req.Name},
	})
}

func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.catalog.DeleteFolder(r.Context(), id); err != nil {
		writeError(w, catalogStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Folder deleted"})
}

// catalogStatus maps catalog sentinel errors to HTTP status codes. Anything
// unrecognized is treated as internal.
func catalogStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrRootFolder),
		errors.Is(err, catalog.ErrNameRequired),
		errors.Is(err, catalog.ErrNameTooLong),
		errors.Is(err, catalog.ErrNameInvalid),
		errors.Is(err, catalog.ErrDuplicateName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
