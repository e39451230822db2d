package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/database"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

// ConversationRepository defines the interface for conversation history
// data access.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, userID uuid.UUID, conversationID int64) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error)
	AddMessage(ctx context.Context, msg *models.Message) error
	// RecentMessages returns the last n messages of a conversation in
	// chronological order.
	RecentMessages(ctx context.Context, conversationID int64, n int) ([]*models.Message, error)
}

type conversationRepository struct {
	db *database.DB
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(db *database.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (user_id, title)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, conv.UserID, conv.Title).
		Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// GetByID retrieves a conversation scoped to its owner. Returns
// apperrors.ErrNotFound if the conversation does not exist or belongs to a
// different user.
func (r *conversationRepository) GetByID(ctx context.Context, userID uuid.UUID, conversationID int64) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at
		FROM conversations
		WHERE id = $1 AND user_id = $2`

	var conv models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		var conv models.Conversation
		err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, &conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

func (r *conversationRepository) AddMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender, content)
		VALUES ($1, $2, $3)
		RETURNING id, timestamp`

	err := r.db.QueryRow(ctx, query, msg.ConversationID, msg.Sender, msg.Content).
		Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	return nil
}

func (r *conversationRepository) RecentMessages(ctx context.Context, conversationID int64, n int) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender, content, timestamp
		FROM (
			SELECT id, conversation_id, sender, content, timestamp
			FROM messages
			WHERE conversation_id = $1
			ORDER BY timestamp DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC, id ASC`

	rows, err := r.db.Query(ctx, query, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Content, &msg.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// Ensure conversationRepository implements ConversationRepository at compile time.
var _ ConversationRepository = (*conversationRepository)(nil)
