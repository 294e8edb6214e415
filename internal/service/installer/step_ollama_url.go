package installer

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const defaultOllamaURL = "http://localhost:11434"

type OllamaURLStep struct {
	input textinput.Model
}

func NewOllamaURLStep() Step {
	ti := textinput.New()
	ti.Focus()
	ti.Placeholder = defaultOllamaURL
	return &OllamaURLStep{input: ti}
}

func (s *OllamaURLStep) Init() tea.Cmd { return textinput.Blink }

func (s *OllamaURLStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimSpace(s.input.Value())
		if val == "" {
			val = s.input.Placeholder
		}
		state.EnvVars[keyOllamaURL] = strings.TrimRight(val, "/")
		return nil, nil
	}

	return s, cmd
}

func (s *OllamaURLStep) View(state *InstallState) string {
	return "Enter Ollama Base URL:\n\n" + s.input.View() + "\n\n(press enter to confirm)\n"
}
