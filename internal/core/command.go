package core

import "context"

// CmdRouter handles slash commands typed into a chat transport. sessionID is
// the transport's current conversation id, empty when none is open.
type CmdRouter interface {
	Execute(ctx context.Context, sessionID, input string) (string, bool)
	ListCommands() []Command
}

type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, sessionID string, args []string) (string, error)
}
