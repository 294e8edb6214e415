package installer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type channel struct {
	title    string
	telegram bool
}

// ChannelStep selects which transports serve the assistant. HTTP is always on.
type ChannelStep struct {
	choices []channel
	cursor  int
}

func NewChannelStep() Step {
	return &ChannelStep{
		choices: []channel{
			{title: "HTTP API"},
			{title: "HTTP API + Telegram", telegram: true},
		},
	}
}

func (s *ChannelStep) Init() tea.Cmd {
	return nil
}

func (s *ChannelStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.choices)-1 {
				s.cursor++
			}
		case "enter":
			state.EnvVars[keyEnableTelegram] = fmt.Sprint(s.choices[s.cursor].telegram)
			return nil, nil
		}
	}
	return s, nil
}

func (s *ChannelStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString("Select how DATACOM-7 is reached:\n\n")
	for i, choice := range s.choices {
		if s.cursor == i {
			b.WriteString(selStyle.Render("❯ "+choice.title) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+choice.title) + "\n")
		}
	}
	b.WriteString("\n(press ctrl+c to quit)\n")
	return b.String()
}
