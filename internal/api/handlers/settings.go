package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ragfuse/ragfuse/internal/settings"
)

type SettingsHandler struct {
	store *settings.Store
}

func NewSettingsHandler(s *settings.Store) *SettingsHandler {
	return &SettingsHandler{store: s}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// Update upserts every key in the posted flat map. Last write wins per key.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(values) == 0 {
		writeError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	for key, value := range values {
		if err := h.store.Set(r.Context(), key, value); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Settings saved"})
}
