package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ragfuse/ragfuse/internal/conversation"
)

type ConversationHandler struct {
	store *conversation.Store
}

func NewConversationHandler(s *conversation.Store) *ConversationHandler {
	return &ConversationHandler{store: s}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if summaries == nil {
		summaries = []conversation.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": summaries})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	messages, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	// A saved conversation always carries at least one message.
	if len(messages) == 0 {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": id,
		"messages":        messages,
	})
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation deleted"})
}
