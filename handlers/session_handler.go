package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/manuals-assistant/models"
	"github.com/upb/manuals-assistant/repositories"
	"github.com/upb/manuals-assistant/utils"
	"go.uber.org/zap"
)

// SessionHandler handles chat history HTTP requests
type SessionHandler struct {
	history repositories.HistoryRepository
	logger  *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(history repositories.HistoryRepository, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		history: history,
		logger:  logger,
	}
}

// HandleListMessages handles GET /api/v1/sessions/{id}/messages
func (h *SessionHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid session ID", nil)
		return
	}

	if _, err := h.history.GetSession(ctx, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	messages, err := h.history.ListMessages(ctx, id)
	if err != nil {
		h.logger.Error("failed to list messages", zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if messages == nil {
		messages = []models.ChatMessage{}
	}
	_ = utils.WriteOK(w, messages)
}

// HandleDeleteSession handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid session ID", nil)
		return
	}

	if err := h.history.DeleteSession(ctx, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}
