package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/manuals-assistant/models"
	"go.uber.org/zap"
)

func sessionRouter(history *fakeHistory) http.Handler {
	handler := NewSessionHandler(history, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/v1/sessions/{id}/messages", handler.HandleListMessages)
	r.Delete("/api/v1/sessions/{id}", handler.HandleDeleteSession)
	return r
}

func TestHandleListMessages_Success(t *testing.T) {
	history := newFakeHistory()
	session := &models.ChatSession{ID: uuid.New(), Title: "pump questions"}
	history.sessions[session.ID] = session
	history.messages = []models.ChatMessage{
		{ID: uuid.New(), SessionID: session.ID, Role: models.RoleUser, Content: "question", CreatedAt: time.Now()},
		{ID: uuid.New(), SessionID: session.ID, Role: models.RoleAssistant, Content: "answer", CreatedAt: time.Now()},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+session.ID.String()+"/messages", nil)
	rec := httptest.NewRecorder()
	sessionRouter(history).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "question")
	assert.Contains(t, rec.Body.String(), "answer")
}

func TestHandleListMessages_EmptySessionReturnsEmptyList(t *testing.T) {
	history := newFakeHistory()
	session := &models.ChatSession{ID: uuid.New()}
	history.sessions[session.ID] = session

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+session.ID.String()+"/messages", nil)
	rec := httptest.NewRecorder()
	sessionRouter(history).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestHandleListMessages_InvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid/messages", nil)
	rec := httptest.NewRecorder()
	sessionRouter(newFakeHistory()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListMessages_SessionNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+uuid.New().String()+"/messages", nil)
	rec := httptest.NewRecorder()
	sessionRouter(newFakeHistory()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteSession_Success(t *testing.T) {
	history := newFakeHistory()
	session := &models.ChatSession{ID: uuid.New()}
	history.sessions[session.ID] = session

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+session.ID.String(), nil)
	rec := httptest.NewRecorder()
	sessionRouter(history).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, history.sessions)
}

func TestHandleDeleteSession_NotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	sessionRouter(newFakeHistory()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
