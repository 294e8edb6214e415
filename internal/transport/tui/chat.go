package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sandevgo/datacom/internal/core"
	"github.com/sandevgo/datacom/internal/service/chat"
)

const (
	defaultWidth         = 100
	defaultHeight        = 30
	inputHeightReserved  = 2
	statusHeightReserved = 3
	minContentHeight     = 5
	sessionIDDisplayLen  = 8
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// ChatProgram is an interactive terminal session with the assistant.
type ChatProgram struct {
	model chatModel
}

// NewChatProgram starts a new conversation, or continues conversationID when
// it is not empty. commands may be nil.
func NewChatProgram(ctx context.Context, turn core.ChatTurn, commands core.CmdRouter, conversationID string) *ChatProgram {
	return &ChatProgram{model: newChatModel(ctx, turn, commands, conversationID)}
}

func (p *ChatProgram) Run() error {
	program := tea.NewProgram(p.model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

type replyMsg struct {
	resp core.ChatResponse
	err  error
}

type commandMsg struct {
	output string
}

type chatModel struct {
	ctx      context.Context
	turn     core.ChatTurn
	commands core.CmdRouter

	conversationID string

	input       textinput.Model
	contentView viewport.Model

	content *strings.Builder
	waiting bool
	err     error

	width  int
	height int
}

func newChatModel(ctx context.Context, turn core.ChatTurn, commands core.CmdRouter, conversationID string) chatModel {
	input := textinput.New()
	input.Focus()
	input.CharLimit = chat.MaxMessageLength
	input.Width = defaultWidth
	input.Prompt = ""

	return chatModel{
		ctx:            ctx,
		turn:           turn,
		commands:       commands,
		conversationID: conversationID,
		input:          input,
		contentView:    viewport.New(defaultWidth, defaultHeight),
		content:        &strings.Builder{},
		width:          defaultWidth,
		height:         defaultHeight,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyPress(msg)...)

	case tea.WindowSizeMsg:
		m.handleWindowResize(msg)

	case replyMsg:
		m.handleReply(msg)

	case commandMsg:
		m.waiting = false
		m.appendEntry(dimStyle.Render("system"), msg.output)
		m.refreshContent()
	}

	if !m.waiting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *chatModel) handleKeyPress(msg tea.KeyMsg) []tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return []tea.Cmd{tea.Quit}

	case tea.KeyCtrlN:
		if !m.waiting {
			m.reset()
		}

	case tea.KeyEnter:
		if m.waiting {
			return nil
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return nil
		}
		if text == "/new" {
			m.input.Reset()
			m.reset()
			return nil
		}
		m.startTurn(text)
		if m.commands != nil && strings.HasPrefix(text, "/") {
			return []tea.Cmd{m.runCommand(text)}
		}
		return []tea.Cmd{m.send(text)}

	case tea.KeyUp:
		m.contentView.LineUp(1)

	case tea.KeyDown:
		m.contentView.LineDown(1)

	case tea.KeyPgUp:
		m.contentView.ViewUp()

	case tea.KeyPgDown:
		m.contentView.ViewDown()
	}

	return nil
}

func (m *chatModel) handleWindowResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	contentHeight := msg.Height - inputHeightReserved - statusHeightReserved
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}

	m.contentView.Width = msg.Width
	m.contentView.Height = contentHeight
	m.input.Width = msg.Width - 3

	m.refreshContent()
}

func (m *chatModel) reset() {
	m.conversationID = ""
	m.content.Reset()
	m.err = nil
	m.refreshContent()
}

func (m *chatModel) startTurn(text string) {
	m.input.Reset()
	m.err = nil
	m.waiting = true

	m.appendEntry(boldStyle.Render("You"), text)
	m.refreshContent()
}

func (m *chatModel) appendEntry(speaker, text string) {
	m.content.WriteString("\n")
	m.content.WriteString(speaker)
	m.content.WriteString("\n")
	m.content.WriteString(text)
	m.content.WriteString("\n")
}

func (m *chatModel) runCommand(text string) tea.Cmd {
	ctx, commands, sessionID := m.ctx, m.commands, m.conversationID
	return func() tea.Msg {
		out, ok := commands.Execute(ctx, sessionID, text)
		if !ok {
			return commandMsg{output: "not a command"}
		}
		return commandMsg{output: out}
	}
}

// send runs the turn off the UI loop.
func (m *chatModel) send(text string) tea.Cmd {
	req := core.ChatRequest{Message: text}
	if m.conversationID != "" {
		id := m.conversationID
		req.ConversationID = &id
	}

	ctx, turn := m.ctx, m.turn
	return func() tea.Msg {
		resp, err := turn.ProcessChat(ctx, req)
		return replyMsg{resp: resp, err: err}
	}
}

func (m *chatModel) handleReply(msg replyMsg) {
	m.waiting = false

	if msg.err != nil {
		var verr *chat.ValidationError
		if errors.As(msg.err, &verr) {
			m.err = verr
		} else {
			m.err = errors.New(chat.MsgMalfunction)
		}
		m.refreshContent()
		return
	}

	if msg.resp.ConversationID != chat.ErrorConversationID {
		m.conversationID = msg.resp.ConversationID
	}

	m.appendEntry(accentStyle.Render(core.AppName), msg.resp.Message)
	m.refreshContent()
}

func (m *chatModel) refreshContent() {
	display := m.content.String()
	if m.err != nil {
		display += "\n" + errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	if m.width > 0 {
		display = wrapText(display, m.width)
	}

	m.contentView.SetContent(display)
	m.contentView.GotoBottom()
}

// wrapText hard-wraps each line to maxWidth display cells.
func wrapText(text string, maxWidth int) string {
	if maxWidth <= 10 {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wrapLine(line, maxWidth)
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string, maxWidth int) string {
	if runewidth.StringWidth(line) <= maxWidth {
		return line
	}

	var result, current strings.Builder
	width := 0

	for _, r := range line {
		w := runewidth.RuneWidth(r)
		if width+w > maxWidth && width > 0 {
			result.WriteString(current.String())
			result.WriteString("\n")
			current.Reset()
			width = 0
		}
		current.WriteRune(r)
		width += w
	}

	result.WriteString(current.String())
	return result.String()
}

func (m chatModel) View() string {
	session := "new conversation"
	if m.conversationID != "" {
		id := m.conversationID
		if len(id) > sessionIDDisplayLen {
			id = id[:sessionIDDisplayLen]
		}
		session = "conversation " + id
	}

	status := accentStyle.Render(core.AppName) + " " + dimStyle.Render(session)
	if m.waiting {
		status += dimStyle.Render(" • consulting magnetic tapes...")
	}

	var inputView, help string
	if m.waiting {
		inputView = dimStyle.Render("> waiting for reply...")
	} else {
		inputView = promptStyle.Render("> ") + m.input.View()
		help = dimStyle.Render("Enter send • /help commands • Ctrl+N new conversation • ↑↓ scroll • Esc quit")
	}

	parts := []string{status, "", m.contentView.View(), "", inputView}
	if help != "" {
		parts = append(parts, help)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
