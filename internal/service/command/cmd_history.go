package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/datacom/internal/core"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
	historySnippet      = 200
)

// HistoryCommand prints the tail of the current conversation
type HistoryCommand struct {
	store     core.ConversationStore
	limit     int
	formatter *ResponseFormatter
}

func NewHistoryCommand(store core.ConversationStore, limit int) *HistoryCommand {
	return &HistoryCommand{
		store:     store,
		limit:     limit,
		formatter: NewResponseFormatter(),
	}
}

func (c *HistoryCommand) Name() string {
	return "history"
}

func (c *HistoryCommand) Description() string {
	return "show the latest messages of this conversation"
}

func (c *HistoryCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	if sessionID == "" {
		return "NO ACTIVE CONVERSATION. Send a message to start one.", nil
	}

	limit := c.limit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return c.formatter.Usage("/history [count]"), nil
		}
		limit = min(n, maxHistoryLimit)
	}

	msgs, err := c.store.RecentMessages(ctx, sessionID, limit)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	if len(msgs) == 0 {
		return "NO MESSAGES ON TAPE YET.", nil
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%s %s: %s",
			m.Timestamp.Format("15:04"),
			strings.ToUpper(string(m.Role)),
			snippet(m.Content, historySnippet)))
	}

	return c.formatter.Combine(
		c.formatter.Info("Conversation History"),
		strings.Join(lines, "\n"),
	), nil
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
