package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ragfuse/ragfuse/internal/conversation"
	"github.com/ragfuse/ragfuse/internal/llm"
	"github.com/ragfuse/ragfuse/internal/retrieval"
	"github.com/ragfuse/ragfuse/internal/vectorstore"
)

const maxResponseSources = 3

type ChatHandler struct {
	assembler     *retrieval.Assembler
	gateway       *llm.Gateway
	conversations *conversation.Store
}

func NewChatHandler(a *retrieval.Assembler, gw *llm.Gateway, convs *conversation.Store) *ChatHandler {
	return &ChatHandler{assembler: a, gateway: gw, conversations: convs}
}

// Chat runs one conversational turn: retrieve context within scope, generate
// a reply, and persist the updated conversation. Generation failures become
// the bot's reply rather than failing the turn, so the conversation survives
// a misconfigured or unreachable model.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message           string   `json:"message"`
		FolderID          string   `json:"folder_id"`
		ConversationID    string   `json:"conversation_id"`
		LLMProvider       string   `json:"llm_provider"`
		WebSearchEnabled  bool     `json:"web_search_enabled"`
		SelectedDocuments []string `json:"selected_documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}
	if req.LLMProvider == "" {
		req.LLMProvider = "openai"
	}

	ctx := r.Context()

	convID := req.ConversationID
	var history []conversation.Message
	if convID == "" {
		convID = uuid.NewString()
	} else {
		msgs, err := h.conversations.Get(ctx, convID)
		if err != nil {
			slog.Warn("failed to load conversation history", "conversation_id", convID, "error", err)
		} else {
			history = msgs
		}
	}

	scope := retrieval.Scope{
		SelectedDocuments: req.SelectedDocuments,
		FolderID:          req.FolderID,
	}
	asm, err := h.assembler.AssembleChat(ctx, req.Message, scope, req.WebSearchEnabled)
	if err != nil {
		if errors.Is(err, vectorstore.ErrUnavailable) {
			writeError(w, http.StatusInternalServerError, "vector index unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to assemble context")
		return
	}

	response, err := h.gateway.Generate(ctx, req.LLMProvider, asm.Prompt, asm.ContextParts)
	if err != nil {
		slog.Error("generation failed", "provider", req.LLMProvider, "error", err)
		response = "Error generating response: " + err.Error()
	}

	sources := asm.Sources
	if len(sources) > maxResponseSources {
		sources = sources[:maxResponseSources]
	}

	now := time.Now().UTC()
	messages := append(history,
		conversation.Message{
			Role:      conversation.RoleUser,
			Content:   req.Message,
			Timestamp: now,
		},
		conversation.Message{
			Role:         conversation.RoleBot,
			Content:      response,
			Timestamp:    now.Add(time.Millisecond),
			Sources:      sources,
			ContextParts: asm.ContextParts,
		},
	)

	if err := h.conversations.Save(ctx, convID, messages, req.SelectedDocuments); err != nil {
		slog.Error("failed to save conversation", "conversation_id", convID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response":        response,
		"sources":         sources,
		"context_used":    len(asm.ContextParts) > 0,
		"context_parts":   asm.ContextParts,
		"conversation_id": convID,
	})
}
