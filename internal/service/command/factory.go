package command

import (
	"github.com/sandevgo/datacom/internal/core"
)

func NewCommands(
	repo core.ConversationRepository,
	model core.ModelStatus,
	cfg core.GenerationConfig,
) []core.Command {
	return []core.Command{
		NewHistoryCommand(repo, defaultHistoryLimit),
		NewTitleCommand(repo),
		NewStatusCommand(model, cfg),
	}
}
