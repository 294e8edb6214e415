package chat

import (
	"strings"

	"github.com/sandevgo/datacom/internal/core"
)

var roleLabels = map[core.Role]string{
	core.RoleSystem:    "System",
	core.RoleUser:      "User",
	core.RoleAssistant: "Assistant",
}

// FormatPrompt renders the turn as "Role: content" lines ending with a bare
// "Assistant:" cue. Messages with unknown roles are skipped.
func FormatPrompt(systemPrompt string, history []core.Message, userMessage string) string {
	lines := make([]string, 0, len(history)+3)
	lines = append(lines, "System: "+systemPrompt)

	for _, msg := range history {
		label, ok := roleLabels[msg.Role]
		if !ok {
			continue
		}
		lines = append(lines, label+": "+msg.Content)
	}

	lines = append(lines, "User: "+userMessage, "Assistant:")
	return strings.Join(lines, "\n")
}

// Prompt formats the context for the model.
func (c ChatContext) Prompt() string {
	return FormatPrompt(c.SystemPrompt, c.History, c.UserMessage)
}
