package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation groups the messages of one chat session.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single turn in a conversation. Sender is "user" or "assistant".
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// HistoryTurn is a prior exchange passed to the SQL generator for context.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
