package handler

import (
	"net/http"

	"github.com/Sujalbagavan/community-hub/internal/model"
	"github.com/Sujalbagavan/community-hub/internal/service"
)

// ChatHandler serves the assistant endpoint. The responder is a stub:
// it echoes the message inside a fixed template and never calls a model.
type ChatHandler struct {
	state *service.AppState
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(state *service.AppState) *ChatHandler {
	return &ChatHandler{state: state}
}

// Chat handles POST /ai-chat
// Responds 200 with the templated echo for any non-empty message and 400
// when the message field is missing. Authenticated exchanges are stored.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Missing message")
		return
	}

	msg, err := h.state.Chat(r.Context(), UserID(r.Context()), req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.ChatResponse{Response: msg.Response})
}

// History handles GET /ai-chat/history
// Lists the requester's exchanges oldest first.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.state.ChatHistory(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chat history")
		return
	}
	if history == nil {
		history = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, history)
}
