package installer

import (
	tea "github.com/charmbracelet/bubbletea"
)

// FinalizationStep fills derived values and defaults
type FinalizationStep struct{}

func NewFinalizationStep() Step {
	return &FinalizationStep{}
}

func (s *FinalizationStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *FinalizationStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	state.EnvVars[keyEnableHTTP] = "true"

	if state.EnvVars[keyTelegramToken] == "" {
		state.EnvVars[keyEnableTelegram] = "false"
		delete(state.EnvVars, keyTelegramOwner)
	}

	if state.EnvVars[keyDebug] == "" {
		state.EnvVars[keyDebug] = "0"
	}

	return nil, nil
}

func (s *FinalizationStep) View(state *InstallState) string {
	return "Finalizing configuration...\n"
}
