package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/manuals-assistant/models"
)

// HistoryRepository persists chat sessions and their messages.
// History storage is optional; when no database is configured the
// application runs without it.
type HistoryRepository interface {
	// CreateSession creates a new chat session
	CreateSession(ctx context.Context, session *models.ChatSession) error

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)

	// AppendMessage appends a message to a session and touches its updated_at
	AppendMessage(ctx context.Context, message *models.ChatMessage) error

	// ListMessages returns a session's messages in chronological order
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error)

	// DeleteSession removes a session and its messages
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}
