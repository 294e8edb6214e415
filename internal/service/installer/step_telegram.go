package installer

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// TelegramTokenStep collects the Telegram bot token
type TelegramTokenStep struct {
	input textinput.Model
}

func NewTelegramTokenStep() Step {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 255
	ti.Width = 40
	ti.Placeholder = "123456789:ABCDEF..."
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'

	return &TelegramTokenStep{
		input: ti,
	}
}

func (s *TelegramTokenStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *TelegramTokenStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if !state.telegramEnabled() {
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		token := strings.TrimSpace(s.input.Value())
		if token == "" {
			return s, nil
		}
		state.EnvVars[keyTelegramToken] = token
		return nil, nil
	}
	return s, cmd
}

func (s *TelegramTokenStep) View(state *InstallState) string {
	return "Enter your Telegram Bot Token:\n\n" +
		s.input.View() + "\n\n" +
		"(press enter to confirm)\n"
}

// TelegramOwnerStep collects the Telegram owner ID. Empty means anyone may chat.
type TelegramOwnerStep struct {
	input textinput.Model
	err   error
}

func NewTelegramOwnerStep() Step {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 20
	ti.Width = 40
	ti.Placeholder = "123456789"

	return &TelegramOwnerStep{
		input: ti,
	}
}

func (s *TelegramOwnerStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *TelegramOwnerStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if !state.telegramEnabled() {
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		val := strings.TrimSpace(s.input.Value())
		if val == "" {
			val = "0"
		}
		if _, err := strconv.ParseInt(val, 10, 64); err != nil {
			s.err = err
			return s, nil
		}
		state.EnvVars[keyTelegramOwner] = val
		return nil, nil
	}
	return s, cmd
}

func (s *TelegramOwnerStep) View(state *InstallState) string {
	view := "Enter your Telegram User ID (leave empty to allow everyone):\n\n" +
		s.input.View() + "\n\n"
	if s.err != nil {
		view += errorStyle.Render("User ID must be a number") + "\n\n"
	}
	return view + "(press enter to confirm)\n"
}
