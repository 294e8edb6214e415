package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/datacom/internal/service/chat"
)

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func typeText(s Step, state *InstallState, text string) Step {
	return step(s, state, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func step(s Step, state *InstallState, msg tea.Msg) Step {
	next, _ := s.Update(msg, state, 80, 40)
	return next
}

func TestOllamaURLStep(t *testing.T) {
	t.Run("placeholder default", func(t *testing.T) {
		state := NewInstallState(t.TempDir())
		assert.Nil(t, step(NewOllamaURLStep(), state, enter))
		assert.Equal(t, defaultOllamaURL, state.EnvVars[keyOllamaURL])
	})

	t.Run("typed value", func(t *testing.T) {
		state := NewInstallState(t.TempDir())
		s := typeText(NewOllamaURLStep(), state, "http://gpu-box:11434/")
		require.NotNil(t, s)
		assert.Nil(t, step(s, state, enter))
		assert.Equal(t, "http://gpu-box:11434", state.EnvVars[keyOllamaURL])
	})
}

func TestModelStep(t *testing.T) {
	state := NewInstallState(t.TempDir())
	state.EnvVars[keyOllamaURL] = "http://ollama:11434"

	var gotURL string
	s := newModelStep(func(_ context.Context, baseURL string) ([]string, error) {
		gotURL = baseURL
		return []string{"tinyllama:latest", "phi3:mini"}, nil
	})

	next, cmd := s.Update(nextMsg{}, state, 80, 40)
	require.NotNil(t, next)
	require.NotNil(t, cmd)

	msg := cmd()
	assert.Equal(t, "http://ollama:11434", gotURL)
	require.IsType(t, modelsMsg{}, msg)

	next = step(next, state, msg)
	require.NotNil(t, next)
	next = step(next, state, down)
	require.NotNil(t, next)

	assert.Nil(t, step(next, state, enter))
	assert.Equal(t, "phi3:mini", state.EnvVars[keyModel])
}

func TestModelStep_ErrorRetries(t *testing.T) {
	state := NewInstallState(t.TempDir())
	calls := 0
	s := newModelStep(func(context.Context, string) ([]string, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	_, cmd := s.Update(nextMsg{}, state, 80, 40)
	msg := cmd()
	step(s, state, msg)
	assert.Contains(t, s.View(state), "connection refused")

	step(s, state, enter)
	assert.Nil(t, s.err)

	_, cmd = s.Update(nextMsg{}, state, 80, 40)
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 2, calls)
}

func TestModelStep_NoModels(t *testing.T) {
	state := NewInstallState(t.TempDir())
	s := newModelStep(func(context.Context, string) ([]string, error) {
		return nil, nil
	})

	_, cmd := s.Update(nextMsg{}, state, 80, 40)
	msg := cmd()
	_, ok := msg.(errMsg)
	assert.True(t, ok)
}

func TestChannelStep(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.Msg
		want string
	}{
		{"http only", []tea.Msg{enter}, "false"},
		{"with telegram", []tea.Msg{down, enter}, "true"},
		{"cursor stops at end", []tea.Msg{down, down, down, enter}, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewInstallState(t.TempDir())
			var s Step = NewChannelStep()
			for _, k := range tt.keys {
				s = step(s, state, k)
			}
			assert.Nil(t, s)
			assert.Equal(t, tt.want, state.EnvVars[keyEnableTelegram])
		})
	}
}

func TestTelegramSteps(t *testing.T) {
	t.Run("skipped without telegram", func(t *testing.T) {
		state := NewInstallState(t.TempDir())
		state.EnvVars[keyEnableTelegram] = "false"

		assert.Nil(t, step(NewTelegramTokenStep(), state, nextMsg{}))
		assert.Nil(t, step(NewTelegramOwnerStep(), state, nextMsg{}))
		assert.NotContains(t, state.EnvVars, keyTelegramToken)
	})

	t.Run("token required", func(t *testing.T) {
		state := NewInstallState(t.TempDir())
		state.EnvVars[keyEnableTelegram] = "true"

		s := step(NewTelegramTokenStep(), state, enter)
		require.NotNil(t, s)

		s = typeText(s, state, "123:abc")
		assert.Nil(t, step(s, state, enter))
		assert.Equal(t, "123:abc", state.EnvVars[keyTelegramToken])
	})

	t.Run("owner must be numeric", func(t *testing.T) {
		state := NewInstallState(t.TempDir())
		state.EnvVars[keyEnableTelegram] = "true"

		s := typeText(NewTelegramOwnerStep(), state, "bob")
		s = step(s, state, enter)
		require.NotNil(t, s)
		assert.Contains(t, s.View(state), "must be a number")
	})

	t.Run("empty owner allows everyone", func(t *testing.T) {
		state := NewInstallState(t.TempDir())
		state.EnvVars[keyEnableTelegram] = "true"

		assert.Nil(t, step(NewTelegramOwnerStep(), state, enter))
		assert.Equal(t, "0", state.EnvVars[keyTelegramOwner])
	})
}

func TestFinalizationStep(t *testing.T) {
	state := NewInstallState(t.TempDir())
	state.EnvVars[keyEnableTelegram] = "true"
	state.EnvVars[keyTelegramOwner] = "42"

	assert.Nil(t, step(NewFinalizationStep(), state, nextMsg{}))
	assert.Equal(t, "true", state.EnvVars[keyEnableHTTP])
	assert.Equal(t, "false", state.EnvVars[keyEnableTelegram])
	assert.Equal(t, "0", state.EnvVars[keyDebug])
	assert.NotContains(t, state.EnvVars, keyTelegramOwner)
}

func TestInitializeFilesStep(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runtime")
	state := NewInstallState(dir)

	assert.Nil(t, step(NewInitializeFilesStep(), state, nextMsg{}))

	path := filepath.Join(dir, personaFile)
	assert.Equal(t, path, state.EnvVars[keyPersonaPath])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DATACOM-7")

	// An edited persona survives a re-run
	require.NoError(t, os.WriteFile(path, []byte("custom"), 0644))
	assert.Nil(t, step(NewInitializeFilesStep(), state, nextMsg{}))

	prompt, err := chat.LoadSystemPrompt(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", prompt)
}

func TestSaveEnvStep(t *testing.T) {
	dir := t.TempDir()
	state := NewInstallState(dir)
	state.EnvVars[keyModel] = "tinyllama"
	state.EnvVars[keyTelegramToken] = "123:abc"

	assert.Nil(t, step(NewSaveEnvStep(), state, nextMsg{}))

	envPath := filepath.Join(dir, ".env")
	got, err := godotenv.Read(envPath)
	require.NoError(t, err)
	assert.Equal(t, state.EnvVars, got)

	info, err := os.Stat(envPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Never overwrites an existing file
	s := step(NewSaveEnvStep(), state, nextMsg{})
	require.NotNil(t, s)
	assert.Contains(t, s.View(state), "already exists")
}

func TestWizardModel(t *testing.T) {
	t.Run("runs steps to completion", func(t *testing.T) {
		m := model{
			steps: []Step{NewChannelStep(), NewFinalizationStep()},
			state: NewInstallState(t.TempDir()),
		}

		next, cmd := m.Update(enter)
		m = next.(model)
		assert.Equal(t, 1, m.currentStep)
		require.NotNil(t, cmd)

		next, cmd = m.Update(cmd())
		m = next.(model)
		assert.Equal(t, 2, m.currentStep)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Equal(t, "true", m.state.EnvVars[keyEnableHTTP])
	})

	t.Run("ctrl+c cancels", func(t *testing.T) {
		m := model{steps: []Step{NewChannelStep()}, state: NewInstallState(t.TempDir())}

		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		m = next.(model)
		assert.True(t, m.quitting)
		assert.Contains(t, m.View(), "cancelled")
	})
}
