package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sandevgo/datacom/internal/service/chat"
)

const personaFile = "PERSONA.md"

// InitializeFilesStep writes the default persona prompt to the runtime
// directory and points the config at it. An existing file is kept.
type InitializeFilesStep struct {
	err  error
	done bool
}

func NewInitializeFilesStep() Step {
	return &InitializeFilesStep{}
}

func (s *InitializeFilesStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *InitializeFilesStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.done {
		return nil, nil
	}

	if err := os.MkdirAll(state.RuntimePath, 0755); err != nil {
		s.err = fmt.Errorf("failed to create runtime directory: %w", err)
		return s, nil
	}

	dst := filepath.Join(state.RuntimePath, personaFile)
	if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(dst, []byte(chat.DefaultSystemPrompt+"\n"), 0644); err != nil {
			s.err = fmt.Errorf("failed to write %s: %w", dst, err)
			return s, nil
		}
	}

	state.EnvVars[keyPersonaPath] = dst
	s.done = true
	return nil, nil
}

func (s *InitializeFilesStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if s.done {
		return "Persona prompt initialized!\n"
	}
	return "Initializing runtime files...\n"
}

// SaveEnvStep writes the collected configuration to the runtime .env file
type SaveEnvStep struct {
	err   error
	saved bool
}

func NewSaveEnvStep() Step {
	return &SaveEnvStep{}
}

func (s *SaveEnvStep) Init() tea.Cmd {
	return func() tea.Msg { return nextMsg{} }
}

func (s *SaveEnvStep) Update(msg tea.Msg, state *InstallState, width, height int) (Step, tea.Cmd) {
	if s.saved {
		return nil, nil
	}

	if err := os.MkdirAll(state.RuntimePath, 0755); err != nil {
		s.err = fmt.Errorf("failed to create runtime directory: %w", err)
		return s, nil
	}

	envPath := filepath.Join(state.RuntimePath, ".env")

	if _, err := os.Stat(envPath); err == nil {
		s.err = fmt.Errorf(".env file already exists at %s", envPath)
		return s, nil
	}

	if err := godotenv.Write(state.EnvVars, envPath); err != nil {
		s.err = fmt.Errorf("failed to write %s: %w", envPath, err)
		return s, nil
	}

	// The file may hold the bot token
	if err := os.Chmod(envPath, 0600); err != nil {
		s.err = err
		return s, nil
	}

	s.saved = true
	return nil, nil
}

func (s *SaveEnvStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n\n(press ctrl+c to quit)\n"
	}
	if s.saved {
		return "Configuration saved successfully!\n"
	}
	return "Saving configuration...\n"
}
