package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kindredapp/kindred/internal/chat"
	"github.com/kindredapp/kindred/internal/log"
)

// MaxMessageLength bounds the accepted chat message size.
const MaxMessageLength = 8000

// chatHandler handles the chat endpoint.
type chatHandler struct {
	service *chat.Service
	logger  log.Logger
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	UserID           string `json:"userId"`
	Message          string `json:"message"`
	ConversationID   string `json:"conversationId,omitempty"`
	OverridePromptID string `json:"overridePromptId,omitempty"`
	UseContext       bool   `json:"useContext,omitempty"`
	RequestDebugInfo bool   `json:"requestDebugInfo,omitempty"`
}

// ChatResponse is the response body for POST /api/chat.
type ChatResponse struct {
	Reply             string          `json:"reply"`
	ConversationID    string          `json:"conversationId"`
	IsNewConversation bool            `json:"isNewConversation"`
	DebugInfo         *chat.DebugInfo `json:"debugInfo,omitempty"`
}

func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if len(req.Message) > MaxMessageLength {
		WriteError(w, http.StatusBadRequest, "message_too_long", "message exceeds maximum length", h.logger)
		return
	}

	resp, err := h.service.Send(r.Context(), chat.SendRequest{
		UserID:           req.UserID,
		Message:          req.Message,
		ConversationID:   req.ConversationID,
		OverridePromptID: req.OverridePromptID,
		UseContext:       req.UseContext,
		RequestDebugInfo: req.RequestDebugInfo,
	})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrEmptyUserID):
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		case errors.Is(err, chat.ErrConversationNotFound), errors.Is(err, chat.ErrPromptNotFound):
			WriteError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
		case errors.Is(err, chat.ErrBusy):
			WriteError(w, http.StatusConflict, "conversation_busy", "a reply is already being generated", h.logger)
		default:
			h.logger.Error("chat turn failed", "error", err, "request_id", requestIDFromContext(r.Context()))
			WriteError(w, http.StatusInternalServerError, "internal_error", "failed to generate reply", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusOK, ChatResponse{
		Reply:             resp.Reply,
		ConversationID:    resp.ConversationID,
		IsNewConversation: resp.IsNewConversation,
		DebugInfo:         resp.Debug,
	}, h.logger)
}

// conversations handles GET /api/conversations.
func (h *chatHandler) conversations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")

	limit := parseIntParam(r, "limit", 50, 1, 200)
	offset := parseIntParam(r, "offset", 0, 0, 100000)

	convs, err := h.service.Conversations(r.Context(), userID, limit, offset)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyUserID) {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
			return
		}
		h.logger.Error("failed to list conversations", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to list conversations", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"conversations": convs,
		"total":         len(convs),
		"limit":         limit,
		"offset":        offset,
	}, h.logger)
}

// deleteConversation handles DELETE /api/conversations/{id}.
func (h *chatHandler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
			return
		}
		h.logger.Error("failed to delete conversation", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to delete conversation", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// messages handles GET /api/conversations/{id}/messages.
func (h *chatHandler) messages(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")

	limit := parseIntParam(r, "limit", 50, 1, 200)
	offset := parseIntParam(r, "offset", 0, 0, 100000)

	msgs, err := h.service.Messages(r.Context(), conversationID, limit, offset)
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
			return
		}
		h.logger.Error("failed to list messages", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to list messages", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"total":    len(msgs),
		"limit":    limit,
		"offset":   offset,
	}, h.logger)
}
