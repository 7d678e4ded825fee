package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/manuals-assistant/models"
	"github.com/upb/manuals-assistant/repositories"
	"github.com/upb/manuals-assistant/services"
	"go.uber.org/zap"
)

// HistoryRepository implements the repositories.HistoryRepository interface
type HistoryRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new chat history repository
func NewHistoryRepository(db *DB, logger *zap.Logger) repositories.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// CreateSession creates a new chat session
func (r *HistoryRepository) CreateSession(ctx context.Context, session *models.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Title,
		session.CreatedAt,
		session.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create chat session: %w", err)
	}

	r.logger.Debug("chat session created", zap.String("id", session.ID.String()))
	return nil
}

// GetSession retrieves a session by ID
func (r *HistoryRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	query := `
		SELECT id, title, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1
	`

	session := &models.ChatSession{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.Title,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}

	return session, nil
}

// AppendMessage appends a message to a session and touches its updated_at
func (r *HistoryRepository) AppendMessage(ctx context.Context, message *models.ChatMessage) error {
	sources, err := marshalSources(message.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal message sources: %w", err)
	}

	query := `
		INSERT INTO chat_messages (id, session_id, role, content, sources, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.db.ExecContext(ctx, query,
		message.ID,
		message.SessionID,
		message.Role,
		message.Content,
		sources,
		message.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}

	touch := `UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, touch, message.CreatedAt, message.SessionID); err != nil {
		return fmt.Errorf("failed to touch chat session: %w", err)
	}

	r.logger.Debug("chat message appended",
		zap.String("session_id", message.SessionID.String()),
		zap.String("role", message.Role))
	return nil
}

// ListMessages returns a session's messages in chronological order
func (r *HistoryRepository) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	query := `
		SELECT id, session_id, role, content, sources, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var sources []byte

		if err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Role,
			&msg.Content,
			&sources,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}

		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &msg.Sources); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message sources: %w", err)
			}
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	return messages, nil
}

// DeleteSession removes a session and its messages
func (r *HistoryRepository) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	query := `DELETE FROM chat_sessions WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return services.ErrSessionNotFound
	}

	r.logger.Debug("chat session deleted", zap.String("id", sessionID.String()))
	return nil
}

// marshalSources encodes the attribution list for JSONB storage.
// Nil sources are stored as SQL NULL.
func marshalSources(sources []models.SourceRef) (interface{}, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return nil, err
	}
	return data, nil
}
