package core

import "time"

const (
	AppName    = "DATACOM-7"
	AppVersion = "1.0.0"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three roles a transcript may hold.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is immutable once created and belongs to exactly one conversation.
type Message struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConversationSummary struct {
	ID                 string    `json:"id"`
	Title              *string   `json:"title"`
	MessageCount       int       `json:"message_count"`
	LastMessagePreview *string   `json:"last_message_preview"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
