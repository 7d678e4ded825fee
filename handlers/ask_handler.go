package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/manuals-assistant/middleware"
	"github.com/upb/manuals-assistant/models"
	"github.com/upb/manuals-assistant/repositories"
	"github.com/upb/manuals-assistant/services/rag"
	"github.com/upb/manuals-assistant/utils"
	"go.uber.org/zap"
)

// AskRequest represents a question for the assistant
type AskRequest struct {
	Question    string   `json:"question" validate:"required"`
	TopK        *int     `json:"top_k,omitempty" validate:"omitempty,gte=1,lte=15"`
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=1"`
	SessionID   string   `json:"session_id,omitempty" validate:"omitempty,uuid"`
}

// AskResponse represents a complete answer with source attribution
type AskResponse struct {
	Answer    string             `json:"answer"`
	Sources   []models.SourceRef `json:"sources"`
	SessionID string             `json:"session_id,omitempty"`
}

// AskService defines the interface for the answer pipeline
type AskService interface {
	Answer(ctx context.Context, params rag.AskParams) *rag.Result
	AnswerStream(ctx context.Context, params rag.AskParams) *rag.Stream
}

// AskHandler handles question-answering HTTP requests
type AskHandler struct {
	service AskService
	history repositories.HistoryRepository // nil when history is disabled
	logger  *zap.Logger
}

// NewAskHandler creates a new AskHandler
func NewAskHandler(service AskService, history repositories.HistoryRepository, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		service: service,
		history: history,
		logger:  logger,
	}
}

// HandleAsk handles POST /api/v1/ask
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	askReq, ok := h.parseRequest(w, r, requestID)
	if !ok {
		return
	}

	result := h.service.Answer(ctx, askParams(askReq))

	sessionID := h.persistTurn(ctx, askReq.SessionID, askReq.Question, result.Answer, result.Sources)

	sources := result.Sources
	if sources == nil {
		sources = []models.SourceRef{}
	}

	_ = utils.WriteOK(w, AskResponse{
		Answer:    result.Answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}

// HandleAskStream handles POST /api/v1/ask/stream.
// The response is SSE: chunk events with text deltas, one sources event
// after the answer completes, then a done event.
func (h *AskHandler) HandleAskStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	askReq, ok := h.parseRequest(w, r, requestID)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("response writer does not support streaming", zap.String("request_id", requestID))
		_ = utils.WriteInternalServerError(w, "Streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := h.service.AnswerStream(ctx, askParams(askReq))

	for chunk := range stream.Chunks() {
		writeSSE(w, "chunk", map[string]string{"text": chunk})
		flusher.Flush()
	}

	sessionID := h.persistTurn(ctx, askReq.SessionID, askReq.Question, stream.Answer(), stream.Sources())

	sources := stream.Sources()
	if sources == nil {
		sources = []models.SourceRef{}
	}
	writeSSE(w, "sources", map[string]interface{}{
		"sources":    sources,
		"session_id": sessionID,
	})
	writeSSE(w, "done", map[string]string{})
	flusher.Flush()
}

// parseRequest decodes and validates the ask request body
func (h *AskHandler) parseRequest(w http.ResponseWriter, r *http.Request, requestID string) (AskRequest, bool) {
	var askReq AskRequest
	if err := json.NewDecoder(r.Body).Decode(&askReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return AskRequest{}, false
	}

	if err := utils.ValidateStruct(&askReq); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return AskRequest{}, false
	}

	return askReq, true
}

// persistTurn records one question/answer exchange in chat history.
// History failures are logged but never fail the request. Returns the
// session ID the turn was stored under, or the incoming ID when history
// is disabled.
func (h *AskHandler) persistTurn(ctx context.Context, sessionID, question, answer string, sources []models.SourceRef) string {
	if h.history == nil {
		return sessionID
	}

	now := time.Now().UTC()

	id, err := h.ensureSession(ctx, sessionID, question, now)
	if err != nil {
		h.logger.Warn("failed to resolve chat session", zap.Error(err))
		return sessionID
	}

	userMsg := &models.ChatMessage{
		ID:        uuid.New(),
		SessionID: id,
		Role:      models.RoleUser,
		Content:   question,
		CreatedAt: now,
	}
	if err := h.history.AppendMessage(ctx, userMsg); err != nil {
		h.logger.Warn("failed to persist user message", zap.Error(err))
		return id.String()
	}

	assistantMsg := &models.ChatMessage{
		ID:        uuid.New(),
		SessionID: id,
		Role:      models.RoleAssistant,
		Content:   answer,
		Sources:   sources,
		CreatedAt: now.Add(time.Millisecond),
	}
	if err := h.history.AppendMessage(ctx, assistantMsg); err != nil {
		h.logger.Warn("failed to persist assistant message", zap.Error(err))
	}

	return id.String()
}

// ensureSession resolves an existing session or creates a new one
func (h *AskHandler) ensureSession(ctx context.Context, sessionID, question string, now time.Time) (uuid.UUID, error) {
	if sessionID != "" {
		id, err := uuid.Parse(sessionID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid session ID: %w", err)
		}
		if _, err := h.history.GetSession(ctx, id); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}

	session := &models.ChatSession{
		ID:        uuid.New(),
		Title:     sessionTitle(question),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.history.CreateSession(ctx, session); err != nil {
		return uuid.Nil, err
	}
	return session.ID, nil
}

// sessionTitle derives a short session title from the first question
func sessionTitle(question string) string {
	const maxTitle = 80
	runes := []rune(question)
	if len(runes) <= maxTitle {
		return question
	}
	return string(runes[:maxTitle]) + "..."
}

// askParams converts the HTTP request into pipeline parameters
func askParams(req AskRequest) rag.AskParams {
	params := rag.AskParams{
		Question:    req.Question,
		TopK:        rag.DefaultTopK,
		Temperature: rag.DefaultTemperature,
	}
	if req.TopK != nil {
		params.TopK = *req.TopK
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	return params
}

// writeSSE writes one server-sent event
func writeSSE(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
