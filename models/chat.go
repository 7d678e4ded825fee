package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession represents a conversation between a field engineer and the assistant
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single turn within a chat session
type ChatMessage struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Sources   []SourceRef `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// SourceRef identifies a manual fragment an answer was grounded on.
// Score is the backend relevance score; 0 means the backend reported none.
type SourceRef struct {
	Name  string  `json:"name"`
	Path  string  `json:"path,omitempty"`
	Score float64 `json:"score"`
}
