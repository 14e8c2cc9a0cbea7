package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kindredapp/kindred/internal/log"
	"github.com/kindredapp/kindred/internal/rag"
)

// ragHandler exposes retrieval telemetry.
type ragHandler struct {
	analytics *rag.Analytics
	logger    log.Logger
}

// stats handles GET /api/rag. With operationId it returns one operation's
// detail; otherwise an aggregate summary, optionally scoped by userId.
func (h *ragHandler) stats(w http.ResponseWriter, r *http.Request) {
	if opID := r.URL.Query().Get("operationId"); opID != "" {
		detail, err := h.analytics.Operation(r.Context(), opID)
		if err != nil {
			if errors.Is(err, rag.ErrOperationNotFound) {
				WriteError(w, http.StatusNotFound, "not_found", err.Error(), h.logger)
				return
			}
			h.logger.Error("failed to load operation", "error", err)
			WriteError(w, http.StatusInternalServerError, "internal_error", "failed to load operation", h.logger)
			return
		}
		WriteJSON(w, http.StatusOK, detail, h.logger)
		return
	}

	summary, err := h.analytics.UserSummary(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		h.logger.Error("failed to aggregate rag stats", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to aggregate stats", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, summary, h.logger)
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
