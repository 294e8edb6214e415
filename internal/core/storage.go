package core

import (
	"context"
	"errors"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore is the narrow persistence contract the chat pipeline needs.
type ConversationStore interface {
	Exists(ctx context.Context, conversationID string) (bool, error)
	// RecentMessages returns at most limit messages, oldest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	// Append reports false when the conversation does not exist.
	Append(ctx context.Context, conversationID string, msg Message) (bool, error)
	Create(ctx context.Context, title *string) (*Conversation, error)
}

// ConversationRepository adds the document CRUD used by the HTTP layer.
type ConversationRepository interface {
	ConversationStore

	Get(ctx context.Context, conversationID string) (*Conversation, error)
	List(ctx context.Context, skip, limit int) ([]ConversationSummary, error)
	ListFull(ctx context.Context, skip, limit int) ([]Conversation, error)
	UpdateTitle(ctx context.Context, conversationID, title string) (*Conversation, error)
	Delete(ctx context.Context, conversationID string) (bool, error)
	Ping(ctx context.Context) error
}
