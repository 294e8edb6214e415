package chat

import (
	"context"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/pkg/log"
)

// ChatContext is everything one turn feeds to the prompt formatter.
type ChatContext struct {
	UserMessage string
	// Empty when the turn starts a new conversation
	ConversationID     string
	SystemPrompt       string
	History            []core.Message
	MaxContextMessages int
}

type ContextBuilder struct {
	store        core.ConversationStore
	systemPrompt string
	maxMessages  int
}

func NewContextBuilder(store core.ConversationStore, systemPrompt string, maxMessages int) *ContextBuilder {
	if maxMessages < 0 {
		maxMessages = 0
	}
	return &ContextBuilder{
		store:        store,
		systemPrompt: systemPrompt,
		maxMessages:  maxMessages,
	}
}

// Build never fails: an unknown conversation or a store error degrades to a
// fresh context.
func (b *ContextBuilder) Build(ctx context.Context, userMessage, conversationID string) ChatContext {
	cc := ChatContext{
		UserMessage:        userMessage,
		SystemPrompt:       b.systemPrompt,
		History:            []core.Message{},
		MaxContextMessages: b.maxMessages,
	}

	if conversationID == "" {
		return cc
	}

	logger := log.FromCtx(ctx).With().Str("conversation_id", conversationID).Logger()

	exists, err := b.store.Exists(ctx, conversationID)
	if err != nil {
		logger.Warn().Err(err).Msg("conversation lookup failed, starting fresh")
		return cc
	}
	if !exists {
		logger.Warn().Msg("conversation not found, starting fresh")
		return cc
	}

	cc.ConversationID = conversationID

	history, err := b.store.RecentMessages(ctx, conversationID, b.maxMessages)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load history")
		return cc
	}

	cc.History = lastN(history, b.maxMessages)
	logger.Debug().Int("messages", len(cc.History)).Msg("loaded context")
	return cc
}

func lastN(msgs []core.Message, n int) []core.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
