package ui

import "github.com/charmbracelet/lipgloss"

// Basic ANSI colours so the help output follows the terminal theme.
var (
	// TitleStyle Cyan section headers
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	// UsageStyle Green usage lines
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle Gray command descriptions
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// FlagStyle Yellow flags
	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)
