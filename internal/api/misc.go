package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kindredapp/kindred/internal/feedback"
	"github.com/kindredapp/kindred/internal/legal"
	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/notify"
)

// MaxFeedbackLength bounds the accepted feedback message size.
const MaxFeedbackLength = 4000

// legalHandler serves legal documents and records acceptances.
type legalHandler struct {
	service *legal.Service
	logger  log.Logger
}

// document handles GET /api/legal/{document}.
func (h *legalHandler) document(w http.ResponseWriter, r *http.Request) {
	body, err := h.service.Document(r.PathValue("document"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// AcceptRequest is the request body for POST /api/legal/accept.
type AcceptRequest struct {
	UserID   string `json:"userId"`
	Document string `json:"document"`
}

// accept handles POST /api/legal/accept.
func (h *legalHandler) accept(w http.ResponseWriter, r *http.Request) {
	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	if err := h.service.Accept(r.Context(), req.UserID, req.Document); err != nil {
		switch {
		case errors.Is(err, legal.ErrEmptyUserID), errors.Is(err, legal.ErrUnknownDocument):
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		default:
			h.logger.Error("failed to record acceptance", "error", err)
			WriteError(w, http.StatusInternalServerError, "internal_error", "failed to record acceptance", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "accepted"}, h.logger)
}

// feedbackHandler records user feedback.
type feedbackHandler struct {
	store  *feedback.Store
	logger log.Logger
}

// FeedbackRequest is the request body for POST /api/feedback.
type FeedbackRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

// submit handles POST /api/feedback.
func (h *feedbackHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if len(req.Message) > MaxFeedbackLength {
		WriteError(w, http.StatusBadRequest, "message_too_long", "message exceeds maximum length", h.logger)
		return
	}

	entry, err := h.store.Submit(r.Context(), req.Type, req.Message, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, feedback.ErrInvalidType), errors.Is(err, feedback.ErrEmptyMessage):
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		default:
			h.logger.Error("failed to store feedback", "error", err)
			WriteError(w, http.StatusInternalServerError, "internal_error", "failed to store feedback", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusCreated, entry, h.logger)
}

// notifyHandler registers and removes push tokens.
type notifyHandler struct {
	store  *notify.Store
	logger log.Logger
}

// RegisterTokenRequest is the request body for the notifications endpoints.
type RegisterTokenRequest struct {
	Token    string `json:"token"`
	UserID   string `json:"userId,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// register handles POST /api/notifications/register.
func (h *notifyHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	if err := h.store.Register(r.Context(), req.Token, req.UserID, req.Platform); err != nil {
		switch {
		case errors.Is(err, notify.ErrEmptyToken), errors.Is(err, notify.ErrEmptyUserID), errors.Is(err, notify.ErrInvalidPlatform):
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		default:
			h.logger.Error("failed to register push token", "error", err)
			WriteError(w, http.StatusInternalServerError, "internal_error", "failed to register token", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "registered"}, h.logger)
}

// unregister handles DELETE /api/notifications/register.
func (h *notifyHandler) unregister(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	if err := h.store.Unregister(r.Context(), req.Token); err != nil {
		if errors.Is(err, notify.ErrEmptyToken) {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
			return
		}
		h.logger.Error("failed to unregister push token", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to unregister token", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "unregistered"}, h.logger)
}
