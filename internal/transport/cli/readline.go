package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/internal/service/chat"
	"github.com/sandevgo/datacom/pkg/log"
)

// ReadLine is a line-mode chat for terminals and pipes where the full screen
// TUI does not fit.
type ReadLine struct {
	turn     core.ChatTurn
	commands core.CmdRouter
	rl       *readline.Instance

	conversationID string
}

// NewReadLine keeps input history under runtimePath. commands may be nil.
func NewReadLine(runtimePath string, turn core.ChatTurn, commands core.CmdRouter, conversationID string) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(runtimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(runtimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		turn:           turn,
		commands:       commands,
		rl:             rl,
		conversationID: conversationID,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	fmt.Fprintf(r.rl.Stdout(), "%s READY. Type 'exit' to quit, /new for a fresh conversation.\n", core.AppName)

	for {
		// Check context before blocking read
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil // Exit on Ctrl+C
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if r.handleLine(ctx, line, r.rl.Stdout()) {
			return nil
		}
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}

// handleLine runs one input line and reports whether the session should end.
func (r *ReadLine) handleLine(ctx context.Context, line string, out io.Writer) bool {
	line = strings.TrimSpace(line)

	switch line {
	case "":
		return false
	case "exit", "quit":
		return true
	case "/new":
		r.conversationID = ""
		fmt.Fprintln(out, "NEW CONVERSATION STARTED. *WHIRRRR*")
		return false
	}

	if r.commands != nil {
		if result, ok := r.commands.Execute(ctx, r.conversationID, line); ok {
			fmt.Fprintln(out, result)
			return false
		}
	}

	req := core.ChatRequest{Message: line}
	if r.conversationID != "" {
		id := r.conversationID
		req.ConversationID = &id
	}

	resp, err := r.turn.ProcessChat(ctx, req)
	if err != nil {
		var verr *chat.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(out, "Error: %v\n", verr)
			return false
		}
		log.FromCtx(ctx).Error().Err(err).Msg("chat turn failed")
		fmt.Fprintln(out, chat.MsgMalfunction)
		return false
	}

	if resp.ConversationID != chat.ErrorConversationID {
		r.conversationID = resp.ConversationID
	}

	fmt.Fprintf(out, "%s: %s\n", core.AppName, resp.Message)
	return false
}
