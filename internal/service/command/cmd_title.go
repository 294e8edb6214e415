package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sandevgo/datacom/internal/core"
)

const maxTitleLength = 100

type titleUpdater interface {
	UpdateTitle(ctx context.Context, conversationID, title string) (*core.Conversation, error)
}

// TitleCommand renames the current conversation
type TitleCommand struct {
	repo      titleUpdater
	formatter *ResponseFormatter
}

func NewTitleCommand(repo titleUpdater) *TitleCommand {
	return &TitleCommand{
		repo:      repo,
		formatter: NewResponseFormatter(),
	}
}

func (c *TitleCommand) Name() string {
	return "title"
}

func (c *TitleCommand) Description() string {
	return "rename this conversation"
}

func (c *TitleCommand) Execute(ctx context.Context, sessionID string, args []string) (string, error) {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
		return c.formatter.Usage(fmt.Sprintf("/title <1-%d characters>", maxTitleLength)), nil
	}

	if sessionID == "" {
		return "NO ACTIVE CONVERSATION. Send a message to start one.", nil
	}

	conv, err := c.repo.UpdateTitle(ctx, sessionID, title)
	if errors.Is(err, core.ErrConversationNotFound) {
		return "CONVERSATION NOT FOUND ON TAPE.", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to set title: %w", err)
	}

	return c.formatter.Success(fmt.Sprintf("Conversation renamed to %q.", *conv.Title)), nil
}
