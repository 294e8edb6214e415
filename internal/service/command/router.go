package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/pkg/log"
)

type Router struct {
	commands  map[string]core.Command
	formatter *ResponseFormatter
}

var _ core.CmdRouter = (*Router)(nil)

func New(commands []core.Command) *Router {
	c := &Router{
		commands:  make(map[string]core.Command),
		formatter: NewResponseFormatter(),
	}

	for _, cmd := range commands {
		c.commands[cmd.Name()] = cmd
	}
	return c
}

// Execute reports false when input is not a command, so the caller runs it as
// a chat turn instead.
func (c *Router) Execute(ctx context.Context, sessionID, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", false
	}

	parts := strings.Fields(input)
	// Telegram appends the bot name in groups: /status@datacom_bot
	name, _, _ := strings.Cut(strings.TrimPrefix(parts[0], "/"), "@")
	args := parts[1:]

	if name == "help" {
		return c.help(), true
	}

	cmd, ok := c.commands[name]
	if !ok {
		return fmt.Sprintf("UNKNOWN COMMAND: /%s. Try /help.", name), true
	}

	result, err := cmd.Execute(ctx, sessionID, args)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("command", name).Msg("command failed")
		return c.formatter.Error(err), true
	}
	return result, true
}

// ListCommands returns the commands sorted by name.
func (c *Router) ListCommands() []core.Command {
	res := make([]core.Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		res = append(res, cmd)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name() < res[j].Name() })
	return res
}

func (c *Router) help() string {
	items := []string{"/help  show this list"}
	for _, cmd := range c.ListCommands() {
		items = append(items, fmt.Sprintf("/%s  %s", cmd.Name(), cmd.Description()))
	}
	return c.formatter.Combine(
		c.formatter.Info("Available Commands"),
		c.formatter.List(items),
	)
}
